package rules

import (
	"fmt"
	"maps"
	"slices"
)

// Result is the outcome of one rule invocation. Valid is true exactly when
// Errors is empty; warnings never affect validity.
type Result struct {
	Valid    bool           `json:"valid"`
	Errors   []string       `json:"errors"`
	Warnings []string       `json:"warnings"`
	Metrics  map[string]int `json:"metrics,omitempty"`
}

// Failed returns an invalid result carrying a single error message.
func Failed(format string, args ...any) Result {
	var c check
	c.fail(format, args...)
	return c.result()
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	return Result{
		Valid:    r.Valid,
		Errors:   slices.Clone(r.Errors),
		Warnings: slices.Clone(r.Warnings),
		Metrics:  maps.Clone(r.Metrics),
	}
}

// check accumulates findings for one rule run.
type check struct {
	errors   []string
	warnings []string
	metrics  map[string]int
}

func (c *check) fail(format string, args ...any) {
	c.errors = append(c.errors, fmt.Sprintf(format, args...))
}

func (c *check) warn(format string, args ...any) {
	c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
}

func (c *check) metric(key string, value int) {
	if c.metrics == nil {
		c.metrics = make(map[string]int)
	}
	c.metrics[key] = value
}

func (c *check) result() Result {
	r := Result{
		Valid:    len(c.errors) == 0,
		Errors:   slices.Clone(c.errors),
		Warnings: slices.Clone(c.warnings),
		Metrics:  maps.Clone(c.metrics),
	}
	if r.Errors == nil {
		r.Errors = []string{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}
	return r
}
