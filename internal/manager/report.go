package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/google/uuid"

	"iacrules/internal/rules"
	"iacrules/pkg/fileops"
)

// Report is the aggregated outcome of running the catalog against one module.
type Report struct {
	RunID          string  `json:"run_id"`
	Target         string  `json:"target"`
	GeneratedAt    string  `json:"generated_at"`
	CatalogVersion string  `json:"catalog_version"`
	Results        Results `json:"results"`
	Summary        Summary `json:"summary"`
}

// Summary totals are exact sums over Results. OverallSuccess is true only
// when every result is valid.
type Summary struct {
	TotalErrors       int              `json:"total_errors"`
	TotalWarnings     int              `json:"total_warnings"`
	OverallSuccess    bool             `json:"overall_success"`
	RulesApplied      []string         `json:"rules_applied"`
	CategoriesTouched []rules.Category `json:"categories_touched"`
}

// Results maps rule names to results and remembers run order. It marshals
// as a JSON object whose keys follow that order.
type Results struct {
	order  []string
	byName map[string]rules.Result
}

func (r *Results) set(name string, res rules.Result) {
	if r.byName == nil {
		r.byName = make(map[string]rules.Result)
	}
	if _, ok := r.byName[name]; !ok {
		r.order = append(r.order, name)
	}
	r.byName[name] = res
}

// Get returns the result recorded for name.
func (r Results) Get(name string) (rules.Result, bool) {
	res, ok := r.byName[name]
	return res, ok
}

// Names returns rule names in run order.
func (r Results) Names() []string {
	return slices.Clone(r.order)
}

func (r Results) Len() int {
	return len(r.order)
}

// All yields results in run order.
func (r Results) All() iter.Seq2[string, rules.Result] {
	return func(yield func(string, rules.Result) bool) {
		for _, name := range r.order {
			if !yield(name, r.byName[name]) {
				return
			}
		}
	}
}

func (r Results) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Results) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return fmt.Errorf("results must be a JSON object")
	}
	*r = Results{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var res rules.Result
		if err := dec.Decode(&res); err != nil {
			return fmt.Errorf("result %s: %w", name, err)
		}
		r.set(name, res)
	}
	_, err := dec.Token()
	return err
}

// Report runs every rule against the module at root. Rules run one at a
// time; module_structure and terraform_docs_config go first. A rule that
// fails to read its inputs or panics is recorded as a failing result and the
// run continues. Once ctx is done the remaining rules are recorded as
// skipped. The only error is an unusable root.
func (m *Manager) Report(ctx context.Context, root string) (Report, error) {
	start := time.Now()
	defer m.logger.LogPerformance("report", start)

	dir, err := fileops.ValidateModuleRoot(root)
	if err != nil {
		return Report{}, fmt.Errorf("cannot generate report: %w", err)
	}

	rep := Report{
		RunID:          uuid.NewString(),
		Target:         dir,
		GeneratedAt:    m.now().UTC().Format(time.RFC3339),
		CatalogVersion: rules.CatalogVersion,
	}
	in := ModuleInputs(dir)
	applied := []string{}
	touched := make(map[rules.Category]bool)

	for _, rule := range m.reportOrder() {
		if err := ctx.Err(); err != nil {
			rep.Results.set(rule.Name, rules.Failed("validation skipped: %v", err))
			continue
		}

		res, ok := m.runIsolated(rule, in)
		rep.Results.set(rule.Name, res)
		if ok {
			applied = append(applied, rule.Name)
			touched[rule.Category] = true
		}
	}

	rep.Summary = summarize(rep.Results)
	rep.Summary.RulesApplied = applied
	rep.Summary.CategoriesTouched = []rules.Category{}
	for _, cat := range rules.Categories {
		if touched[cat] {
			rep.Summary.CategoriesTouched = append(rep.Summary.CategoriesTouched, cat)
		}
	}

	m.logger.Info("Report generated",
		"runId", rep.RunID,
		"target", dir,
		"rules", rep.Results.Len(),
		"errors", rep.Summary.TotalErrors,
		"warnings", rep.Summary.TotalWarnings,
		"success", rep.Summary.OverallSuccess)

	return rep, nil
}

func (m *Manager) reportOrder() []Rule {
	first := []string{rules.RuleModuleStructure, rules.RuleTerraformDocsConfig}
	order := make([]Rule, 0, len(m.registry))
	for _, name := range first {
		if i, ok := m.byName[name]; ok {
			order = append(order, m.registry[i])
		}
	}
	for _, r := range m.registry {
		if !slices.Contains(first, r.Name) {
			order = append(order, r)
		}
	}
	return order
}

// runIsolated runs rule, turning read errors and panics into a failing result.
// ok reports whether the rule itself completed.
func (m *Manager) runIsolated(rule Rule, in Inputs) (res rules.Result, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("Rule panicked", "rule", rule.Name, "panic", p)
			res, ok = rules.Failed("error executing validation: %v", p), false
		}
	}()

	r, err := rule.run(&source{m: m, in: in})
	if err != nil {
		m.logger.Warn("Rule could not run", "rule", rule.Name, "error", err)
		return rules.Failed("error executing validation: %v", err), false
	}
	return r, true
}

func summarize(results Results) Summary {
	s := Summary{OverallSuccess: true}
	for _, res := range results.All() {
		s.TotalErrors += len(res.Errors)
		s.TotalWarnings += len(res.Warnings)
		if !res.Valid {
			s.OverallSuccess = false
		}
	}
	return s
}

// ReportJSON renders rep as indented JSON.
func ReportJSON(rep Report) ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}
