// Package rules implements the Terraform module rule catalog. Every check is
// a pure function over file contents that returns a Result; only the module
// structure and terraform-docs checks look at a file system, and they do so
// through an fs.FS supplied by the caller.
package rules

// CatalogVersion identifies the rule set. Bump it when a rule changes
// severity or meaning.
const CatalogVersion = "2.0.0"

// Category groups related rules.
type Category string

const (
	CategoryBasics        Category = "basics"
	CategoryAdvanced      Category = "advanced"
	CategorySecurity      Category = "security"
	CategoryDocumentation Category = "documentation"
)

// Categories lists every category in catalog order.
var Categories = []Category{
	CategoryBasics,
	CategoryAdvanced,
	CategorySecurity,
	CategoryDocumentation,
}

// Rule names, unique across the catalog.
const (
	RuleModuleStructure   = "module_structure"
	RuleNamingConventions = "naming_conventions"
	RuleRequiredVariables = "required_variables"
	RuleTagging           = "tagging"
	RuleSampleValues      = "sample_values"

	RuleSmartTypes            = "smart_types"
	RuleForEach               = "for_each"
	RuleVariableValidations   = "variable_validations"
	RuleLocalsTransforms      = "locals_transforms"
	RuleOutputs               = "outputs"
	RuleProviderConfiguration = "provider_configuration"

	RuleEncryption        = "encryption"
	RulePublicAccess      = "public_access"
	RuleForceTLS          = "force_tls"
	RuleLeastPrivilege    = "least_privilege"
	RuleLoggingMonitoring = "logging_monitoring"
	RuleNetwork           = "network"

	RuleReadmeStructure     = "readme_structure"
	RuleChangelog           = "changelog"
	RuleSampleReadme        = "sample_readme"
	RuleTerraformDocsConfig = "terraform_docs_config"
	RuleDescriptions        = "descriptions"
	RuleReleaseTags         = "release_tags"
)

// Module-relative paths of the files rules read.
const (
	FileGitignore      = ".gitignore"
	FileChangelog      = "CHANGELOG.md"
	FileReadme         = "README.md"
	FileData           = "data.tf"
	FileLocals         = "locals.tf"
	FileMain           = "main.tf"
	FileOutputs        = "outputs.tf"
	FileProviders      = "providers.tf"
	FileVariables      = "variables.tf"
	FileTerraformDocs  = ".terraform-docs.yml"
	DirSample          = "sample"
	FileSampleReadme   = "sample/README.md"
	FileSampleTfvars   = "sample/terraform.tfvars.sample"
	FileSampleMain     = "sample/main.tf"
	FileSampleData     = "sample/data.tf"
	FileSampleOutputs  = "sample/outputs.tf"
	FileSampleProvider = "sample/providers.tf"
)

// Metric keys reported to clients.
const (
	MetricElementsFound      = "elementos_encontrados"
	MetricElementsRequired   = "elementos_requeridos"
	MetricVariablesFound     = "variables_encontradas"
	MetricVariablesDefined   = "variables_definidas"
	MetricVariablesAnalyzed  = "variables_analizadas"
	MetricVariablesValidated = "variables_validadas"
	MetricResourcesAnalyzed  = "recursos_analizados"
	MetricOutputsAnalyzed    = "outputs_analizados"
	MetricSectionsFound      = "secciones_encontradas"
	MetricSectionsRequired   = "secciones_requeridas"
	MetricVersionsFound      = "versiones_encontradas"
	MetricTagsFound          = "tags_encontrados"
)
