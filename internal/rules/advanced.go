package rules

import (
	"regexp"
	"slices"
	"strings"
)

// Advanced checks type heuristics, iteration style, variable validations,
// locals complexity, outputs and provider constraints.
type Advanced struct {
	validatedVariables []string
	maxNesting         int
	countAttr          *regexp.Regexp
	requiredVersion    *regexp.Regexp
	awsProvider        *regexp.Regexp
}

// NewAdvanced returns the advanced-patterns category.
func NewAdvanced() *Advanced {
	return &Advanced{
		validatedVariables: []string{"environment", "client", "project"},
		maxNesting:         2,
		countAttr:          regexp.MustCompile(`\bcount\s*=`),
		requiredVersion:    regexp.MustCompile(`required_version\s*=\s*"[^"]*>=\s*1\.\d`),
		awsProvider:        regexp.MustCompile(`(?s)aws\s*=\s*\{[^}]*version\s*=\s*"[^"]*>=\s*5\.\d`),
	}
}

// SmartTypes checks variable types against naming heuristics: *_config
// variables describe several resources and need map(object(...)), *rules*
// variables usually need list(object(...)) and tags are map(string).
func (a *Advanced) SmartTypes(variables string) Result {
	var c check
	analyzed := 0

	for _, b := range blocksOf(variables, "variable") {
		typ, ok := typeExpression(b.body)
		if !ok {
			continue
		}
		analyzed++
		name := b.label(0)

		if strings.Contains(name, "_config") && !strings.Contains(typ, "map(object(") {
			c.fail("variable %s must use map(object(...)) to describe multiple resources", name)
		}
		if strings.Contains(name, "rules") && !strings.Contains(typ, "list(object(") {
			c.warn("variable %s may need list(object(...)) for multiple entries", name)
		}
		if strings.Contains(name, "tags") && typ != "map(string)" {
			c.warn("variable %s should use map(string) for tags", name)
		}
	}

	c.metric(MetricVariablesAnalyzed, analyzed)
	return c.result()
}

// ForEach forbids count and flags resources driven by a *_config variable
// that do not iterate with for_each.
func (a *Advanced) ForEach(main string) Result {
	var c check

	if a.countAttr.MatchString(main) {
		c.fail("count is not allowed, use for_each for multiple resources")
	}

	resources := resourcesOf(main)
	for _, r := range resources {
		if strings.Contains(r.body, "for_each") {
			continue
		}
		if strings.Contains(r.body, "var.") && strings.Contains(r.body, "_config") {
			c.warn("resource %s may need for_each", r.address())
		}
	}

	c.metric(MetricResourcesAnalyzed, len(resources))
	return c.result()
}

// VariableValidations checks validation blocks on the required variables:
// environment must restrict values with contains(), client and project
// should constrain their format with regex().
func (a *Advanced) VariableValidations(variables string) Result {
	var c check
	bodies := variableBodies(variables)
	validated := 0

	for _, name := range a.validatedVariables {
		body, ok := bodies[name]
		if !ok {
			continue
		}
		if !strings.Contains(body, "validation") {
			c.fail("variable %s is missing a validation block", name)
			continue
		}
		validated++

		switch name {
		case "environment":
			if !strings.Contains(body, "contains(") {
				c.fail("variable environment validation must restrict values with contains()")
			}
		case "client", "project":
			if !strings.Contains(body, "regex(") {
				c.warn("variable %s validation should check its format with regex()", name)
			}
		}
	}

	c.metric(MetricVariablesValidated, validated)
	return c.result()
}

// LocalsTransforms keeps locals simple: no flatten over nested for
// expressions, at most two levels of nesting, and resource_names present.
func (a *Advanced) LocalsTransforms(locals string) Result {
	var c check

	for _, call := range flattenCalls(locals) {
		if len(forKeyword.FindAllStringIndex(call, -1)) > 1 {
			c.fail("flatten() over nested for expressions is not allowed in locals")
			break
		}
	}

	for _, expr := range forExpressions(locals) {
		if maxDepth(expr) > a.maxNesting {
			c.warn("locals transformation may be too complex (more than %d levels)", a.maxNesting)
		}
	}

	if !strings.Contains(locals, "resource_names") {
		c.fail("locals.tf must define resource_names")
	}

	return c.result()
}

// Outputs checks that every output is described and that outputs exposing
// AWS resources are keyed per instance.
func (a *Advanced) Outputs(outputs string) Result {
	var c check
	blocks := blocksOf(outputs, "output")

	for _, o := range blocks {
		name := o.label(0)
		if !descriptionAttr.MatchString(o.body) {
			c.fail("output %s must have a description", name)
		}
		if strings.Contains(o.body, "value") && strings.Contains(o.body, "aws_") {
			if !strings.Contains(o.body, "for k, v in") && !strings.Contains(o.body, "[") {
				c.warn("output %s should expose a per-key map (for k, v in ...)", name)
			}
		}
	}

	c.metric(MetricOutputsAnalyzed, len(blocks))
	return c.result()
}

// ProviderConfiguration checks the aws provider block and the minimum
// terraform and provider versions.
func (a *Advanced) ProviderConfiguration(providers string) Result {
	var c check

	hasAWS := slices.ContainsFunc(blocksOf(providers, "provider"), func(b block) bool {
		return b.label(0) == "aws"
	})
	if !hasAWS {
		c.fail(`providers.tf must configure provider "aws"`)
	}

	if len(blocksOf(providers, "terraform")) > 0 {
		if !strings.Contains(providers, "required_version") {
			c.warn("terraform block should set required_version")
		} else if !a.requiredVersion.MatchString(providers) {
			c.warn("required_version should be >= 1.0")
		}
	}

	if !strings.Contains(providers, "required_providers") {
		c.warn("terraform block should declare required_providers")
	} else if !a.awsProvider.MatchString(providers) {
		c.warn("required_providers should pin aws >= 5.0")
	}

	return c.result()
}
