package manager

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"iacrules/internal/rules"
)

const (
	markValid   = "✅"
	markInvalid = "❌"
	markWarning = "⚠️"
)

func status(valid bool) string {
	if valid {
		return markValid + " VALID"
	}
	return markInvalid + " INVALID"
}

// FormatResult renders one rule result as markdown.
func FormatResult(title string, r rules.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n**Status:** %s\n\n", title, status(r.Valid))
	writeFindings(&b, r, "###")
	writeMetrics(&b, r.Metrics)
	return b.String()
}

func writeFindings(b *strings.Builder, r rules.Result, level string) {
	if len(r.Errors) > 0 {
		fmt.Fprintf(b, "%s %s Errors\n", level, markInvalid)
		for _, e := range r.Errors {
			fmt.Fprintf(b, "- %s\n", e)
		}
		b.WriteString("\n")
	}
	if len(r.Warnings) > 0 {
		fmt.Fprintf(b, "%s %s Warnings\n", level, markWarning)
		for _, w := range r.Warnings {
			fmt.Fprintf(b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
}

func writeMetrics(b *strings.Builder, metrics map[string]int) {
	if len(metrics) == 0 {
		return
	}
	keys := slices.Sorted(maps.Keys(metrics))
	b.WriteString("**Metrics:**\n")
	for _, k := range keys {
		fmt.Fprintf(b, "- %s: %d\n", k, metrics[k])
	}
	b.WriteString("\n")
}

// FormatReport renders a full report as markdown, grouping results by
// category in run order.
func (m *Manager) FormatReport(rep Report) string {
	var b strings.Builder

	b.WriteString("# Module Validation Report\n\n")
	fmt.Fprintf(&b, "**Module:** %s\n", rep.Target)
	fmt.Fprintf(&b, "**Generated:** %s\n", rep.GeneratedAt)
	fmt.Fprintf(&b, "**Catalog version:** %s\n", rep.CatalogVersion)
	fmt.Fprintf(&b, "**Run:** %s\n\n", rep.RunID)

	passed := 0
	for _, res := range rep.Results.All() {
		if res.Valid {
			passed++
		}
	}
	total := rep.Results.Len()

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- **Overall:** %s\n", status(rep.Summary.OverallSuccess))
	fmt.Fprintf(&b, "- **Validations:** %d (%d passed, %d failed)\n", total, passed, total-passed)
	if total > 0 {
		fmt.Fprintf(&b, "- **Success rate:** %.1f%%\n", float64(passed)*100/float64(total))
	}
	fmt.Fprintf(&b, "- **Errors:** %d\n", rep.Summary.TotalErrors)
	fmt.Fprintf(&b, "- **Warnings:** %d\n\n", rep.Summary.TotalWarnings)

	for _, cat := range rules.Categories {
		var names []string
		for _, name := range rep.Results.Names() {
			if r, err := m.Lookup(name); err == nil && r.Category == cat {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			continue
		}

		fmt.Fprintf(&b, "## %s\n\n", titleCase(string(cat)))
		for _, name := range names {
			res, _ := rep.Results.Get(name)
			mark := markValid
			if !res.Valid {
				mark = markInvalid
			}
			fmt.Fprintf(&b, "### %s %s\n\n", mark, name)
			writeFindings(&b, res, "####")
		}
	}

	return b.String()
}

// FormatStats renders catalog statistics as markdown.
func FormatStats(s Stats) string {
	var b strings.Builder

	b.WriteString("## Rule Catalog Statistics\n\n")
	fmt.Fprintf(&b, "**Version:** %s\n", s.CatalogVersion)
	fmt.Fprintf(&b, "**Total rules:** %d\n", s.TotalRules)
	fmt.Fprintf(&b, "**Categories:** %d\n\n", s.TotalCategories)

	for _, c := range s.Categories {
		fmt.Fprintf(&b, "### %s\n", titleCase(string(c.Category)))
		fmt.Fprintf(&b, "- **Count:** %d\n", len(c.Rules))
		fmt.Fprintf(&b, "- **Rules:** %s\n\n", strings.Join(c.Rules, ", "))
	}

	if len(s.Generators) > 0 {
		b.WriteString("### Generators\n")
		fmt.Fprintf(&b, "- %s\n", strings.Join(s.Generators, ", "))
	}

	return b.String()
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
