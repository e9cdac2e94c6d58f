package manager

import (
	"os"

	"iacrules/internal/rules"
)

// Rule is one registry entry. Inputs lists the module-relative files the
// rule reads; ModuleDir means it inspects the directory itself.
type Rule struct {
	Name     string
	Category rules.Category
	Summary  string
	Inputs   []string
	run      func(s *source) (rules.Result, error)
}

func unary(name string, cat rules.Category, summary, file string, fn func(string) rules.Result) Rule {
	return Rule{
		Name:     name,
		Category: cat,
		Summary:  summary,
		Inputs:   []string{file},
		run: func(s *source) (rules.Result, error) {
			a, err := s.text(file)
			if err != nil {
				return rules.Result{}, err
			}
			return fn(a), nil
		},
	}
}

func binary(name string, cat rules.Category, summary, fileA, fileB string, fn func(string, string) rules.Result) Rule {
	return Rule{
		Name:     name,
		Category: cat,
		Summary:  summary,
		Inputs:   []string{fileA, fileB},
		run: func(s *source) (rules.Result, error) {
			a, err := s.text(fileA)
			if err != nil {
				return rules.Result{}, err
			}
			b, err := s.text(fileB)
			if err != nil {
				return rules.Result{}, err
			}
			return fn(a, b), nil
		},
	}
}

func (m *Manager) buildRegistry() []Rule {
	b, a, sec, d := m.basics, m.advanced, m.security, m.documentation

	return []Rule{
		{
			Name:     rules.RuleModuleStructure,
			Category: rules.CategoryBasics,
			Summary:  "required root files, sample/ directory and its files (16 elements)",
			Inputs:   []string{ModuleDir},
			run: func(s *source) (rules.Result, error) {
				dir, err := s.dir()
				if err != nil {
					return rules.Result{}, err
				}
				return b.ModuleStructure(os.DirFS(dir)), nil
			},
		},
		binary(rules.RuleNamingConventions, rules.CategoryBasics,
			"resource_names built from client, project and environment",
			rules.FileLocals, rules.FileMain, b.NamingConventions),
		unary(rules.RuleRequiredVariables, rules.CategoryBasics,
			"client, project and environment declared and described",
			rules.FileVariables, b.RequiredVariables),
		binary(rules.RuleTagging, rules.CategoryBasics,
			"merged per-resource tags, default_tags left to the consumer",
			rules.FileProviders, rules.FileMain, b.Tagging),
		unary(rules.RuleSampleValues, rules.CategoryBasics,
			"example tfvars assigns every required variable",
			rules.FileSampleTfvars, b.SampleValues),

		unary(rules.RuleSmartTypes, rules.CategoryAdvanced,
			"variable types match their naming",
			rules.FileVariables, a.SmartTypes),
		unary(rules.RuleForEach, rules.CategoryAdvanced,
			"for_each instead of count",
			rules.FileMain, a.ForEach),
		unary(rules.RuleVariableValidations, rules.CategoryAdvanced,
			"validation blocks on required variables",
			rules.FileVariables, a.VariableValidations),
		unary(rules.RuleLocalsTransforms, rules.CategoryAdvanced,
			"simple locals transformations",
			rules.FileLocals, a.LocalsTransforms),
		unary(rules.RuleOutputs, rules.CategoryAdvanced,
			"described, per-key outputs",
			rules.FileOutputs, a.Outputs),
		unary(rules.RuleProviderConfiguration, rules.CategoryAdvanced,
			"aws provider and minimum versions",
			rules.FileProviders, a.ProviderConfiguration),

		binary(rules.RuleEncryption, rules.CategorySecurity,
			"encryption enabled by default",
			rules.FileVariables, rules.FileMain, sec.Encryption),
		binary(rules.RulePublicAccess, rules.CategorySecurity,
			"public access blocked by default",
			rules.FileVariables, rules.FileMain, sec.PublicAccess),
		binary(rules.RuleForceTLS, rules.CategorySecurity,
			"TLS enforced for every endpoint",
			rules.FileMain, rules.FileData, sec.ForceTLS),
		binary(rules.RuleLeastPrivilege, rules.CategorySecurity,
			"IAM statements without wildcards",
			rules.FileVariables, rules.FileData, sec.LeastPrivilege),
		binary(rules.RuleLoggingMonitoring, rules.CategorySecurity,
			"logging, versioning and retention",
			rules.FileVariables, rules.FileMain, sec.LoggingMonitoring),
		unary(rules.RuleNetwork, rules.CategorySecurity,
			"VPC DNS, public IPs and open network ACLs",
			rules.FileMain, sec.Network),

		unary(rules.RuleReadmeStructure, rules.CategoryDocumentation,
			"README sections present and in order",
			rules.FileReadme, d.ReadmeStructure),
		unary(rules.RuleChangelog, rules.CategoryDocumentation,
			"Keep a Changelog layout with dated versions",
			rules.FileChangelog, d.Changelog),
		unary(rules.RuleSampleReadme, rules.CategoryDocumentation,
			"example README steps and commands",
			rules.FileSampleReadme, d.SampleReadme),
		{
			Name:     rules.RuleTerraformDocsConfig,
			Category: rules.CategoryDocumentation,
			Summary:  ".terraform-docs.yml injects into README.md",
			Inputs:   []string{ModuleDir},
			run: func(s *source) (rules.Result, error) {
				dir, err := s.dir()
				if err != nil {
					return rules.Result{}, err
				}
				return d.TerraformDocsConfig(os.DirFS(dir)), nil
			},
		},
		binary(rules.RuleDescriptions, rules.CategoryDocumentation,
			"every variable and output described",
			rules.FileVariables, rules.FileOutputs, d.Descriptions),
		{
			Name:     rules.RuleReleaseTags,
			Category: rules.CategoryDocumentation,
			Summary:  "changelog versions match git release tags",
			Inputs:   []string{ModuleDir, rules.FileChangelog},
			run: func(s *source) (rules.Result, error) {
				dir, err := s.dir()
				if err != nil {
					return rules.Result{}, err
				}
				changelog, err := s.text(rules.FileChangelog)
				if err != nil {
					return rules.Result{}, err
				}
				info, err := m.tags.Describe(dir)
				if err != nil {
					return rules.Result{}, err
				}
				return d.ReleaseTags(changelog, info.Tags, info.InRepository), nil
			},
		},
	}
}
