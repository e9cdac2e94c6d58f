// Package manager owns the rule categories and exposes every rule under one
// name-keyed registry. It offers two call paths with different failure
// policies: Invoke runs a single rule and fails fast, Report runs the whole
// catalog against a module and isolates each rule's failures.
package manager

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"iacrules/internal/config"
	"iacrules/internal/gitmeta"
	"iacrules/internal/logging"
	"iacrules/internal/rules"
	"iacrules/internal/templates"
	"iacrules/pkg/fileops"
)

// ErrUnknownRule is returned for names missing from the registry.
var ErrUnknownRule = errors.New("unknown rule")

// TagReader describes the git repository enclosing a module.
type TagReader interface {
	Describe(path string) (gitmeta.Info, error)
}

// Manager holds one instance of each category. It is safe for sequential use;
// the registry is read-only after New.
type Manager struct {
	basics        *rules.Basics
	advanced      *rules.Advanced
	security      *rules.Security
	documentation *rules.Documentation
	templates     *templates.Generator

	registry []Rule
	byName   map[string]int

	tags        TagReader
	logger      *logging.AppLogger
	now         func() time.Time
	maxFileSize int64
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxFileSize bounds every file a rule reads.
func WithMaxFileSize(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxFileSize = n
		}
	}
}

// WithClock replaces the wall clock for report timestamps and generated
// changelogs.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func WithLogger(l *logging.AppLogger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

func WithTagReader(r TagReader) Option {
	return func(m *Manager) {
		m.tags = r
	}
}

// New builds the categories and the registry.
func New(opts ...Option) *Manager {
	m := &Manager{
		basics:        rules.NewBasics(),
		advanced:      rules.NewAdvanced(),
		security:      rules.NewSecurity(),
		documentation: rules.NewDocumentation(),
		tags:          gitmeta.Reader{},
		now:           time.Now,
		maxFileSize:   config.DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logging.GetDefault()
	}
	m.templates = &templates.Generator{Now: m.now}

	m.registry = m.buildRegistry()
	m.byName = make(map[string]int, len(m.registry))
	for i, r := range m.registry {
		m.byName[r.Name] = i
	}
	return m
}

// Templates returns the documentation generator sharing the manager's clock.
func (m *Manager) Templates() *templates.Generator {
	return m.templates
}

// Rules returns the registry in catalog order.
func (m *Manager) Rules() []Rule {
	return slices.Clone(m.registry)
}

// Lookup returns the rule registered under name.
func (m *Manager) Lookup(name string) (Rule, error) {
	i, ok := m.byName[name]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownRule, name)
	}
	return m.registry[i], nil
}

// Invoke runs one rule. Read errors are returned, and a panicking rule is
// not recovered.
func (m *Manager) Invoke(name string, in Inputs) (rules.Result, error) {
	rule, err := m.Lookup(name)
	if err != nil {
		return rules.Result{}, err
	}

	m.logger.Debug("Invoking rule", "rule", name, "inputs", rule.Inputs)
	res, err := rule.run(&source{m: m, in: in})
	if err != nil {
		return rules.Result{}, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}

// CategoryRules lists the rules of one category.
type CategoryRules struct {
	Category rules.Category `json:"category"`
	Rules    []string       `json:"rules"`
}

// Catalog returns every category with its rule names, in catalog order.
func (m *Manager) Catalog() []CategoryRules {
	out := make([]CategoryRules, 0, len(rules.Categories))
	for _, cat := range rules.Categories {
		entry := CategoryRules{Category: cat, Rules: []string{}}
		for _, r := range m.registry {
			if r.Category == cat {
				entry.Rules = append(entry.Rules, r.Name)
			}
		}
		out = append(out, entry)
	}
	return out
}

// Stats summarizes the catalog.
type Stats struct {
	CatalogVersion  string          `json:"catalog_version"`
	TotalRules      int             `json:"total_rules"`
	TotalCategories int             `json:"total_categories"`
	Categories      []CategoryRules `json:"categories"`
	Generators      []string        `json:"generators"`
}

func (m *Manager) Stats() Stats {
	return Stats{
		CatalogVersion:  rules.CatalogVersion,
		TotalRules:      len(m.registry),
		TotalCategories: len(rules.Categories),
		Categories:      m.Catalog(),
		Generators:      templates.Documents(),
	}
}

// source reads rule inputs through the manager's size-bounded reader.
type source struct {
	m  *Manager
	in Inputs
}

func (s *source) text(name string) (string, error) {
	p, err := s.in.Path(name)
	if err != nil {
		return "", err
	}
	text, err := fileops.ReadTextFile(p, s.m.maxFileSize)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", name, err)
	}
	return text, nil
}

func (s *source) dir() (string, error) {
	p, err := s.in.Path(ModuleDir)
	if err != nil {
		return "", err
	}
	return fileops.ValidateModuleRoot(p)
}
