package mcp

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"iacrules/internal/manager"
	"iacrules/internal/rules"
	"iacrules/internal/templates"

	"github.com/mark3labs/mcp-go/mcp"
)

var (
	// ErrUnknownTool is returned for a call to a tool that is not registered.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrMissingArgument is returned when a required tool argument is absent
	// or blank.
	ErrMissingArgument = errors.New("missing argument")
)

// Argument names shared by several tools.
const (
	ArgModulePath   = "ruta_modulo"
	ArgModuleName   = "nombre_modulo"
	ArgResourceType = "tipo_recurso"
)

type argument struct {
	name        string
	description string
}

// inputArguments maps the module-relative inputs a rule reads to the tool
// argument that supplies each of them.
var inputArguments = map[string]argument{
	manager.ModuleDir:      {ArgModulePath, "Ruta al directorio del módulo Terraform"},
	rules.FileVariables:    {"ruta_variables", "Ruta al archivo variables.tf"},
	rules.FileMain:         {"ruta_main", "Ruta al archivo main.tf"},
	rules.FileData:         {"ruta_data", "Ruta al archivo data.tf"},
	rules.FileLocals:       {"ruta_locals", "Ruta al archivo locals.tf"},
	rules.FileOutputs:      {"ruta_outputs", "Ruta al archivo outputs.tf"},
	rules.FileProviders:    {"ruta_providers", "Ruta al archivo providers.tf"},
	rules.FileReadme:       {"ruta_readme", "Ruta al archivo README.md"},
	rules.FileChangelog:    {"ruta_changelog", "Ruta al archivo CHANGELOG.md"},
	rules.FileSampleReadme: {"ruta_readme", "Ruta al archivo sample/README.md"},
	rules.FileSampleTfvars: {"ruta_tfvars", "Ruta al archivo sample/terraform.tfvars.sample"},
}

type handlerFunc func(ctx context.Context, req mcp.CallToolRequest) (string, error)

// Tool is a registered tool: its protocol definition and the handler that
// answers calls to it.
type Tool struct {
	definition mcp.Tool
	handle     handlerFunc
}

func (t *Tool) Name() string {
	return t.definition.Name
}

// Definition returns the definition advertised by tools/list.
func (t *Tool) Definition() mcp.Tool {
	return t.definition
}

// ToolRegistry is the closed set of tools the server exposes. It is built
// once and only read afterwards.
type ToolRegistry struct {
	tools  []*Tool
	byName map[string]*Tool
}

// ruleTool describes a tool that runs a single catalog rule.
type ruleTool struct {
	name        string
	rule        string
	title       string
	description string
}

// primaryRuleTools precede the generator tools in tools/list.
var primaryRuleTools = []ruleTool{
	{"validar_estructura_modulo", rules.RuleModuleStructure, "🏗️ Module Structure",
		"🏗️ [BÁSICAS] Valida que el módulo tenga exactamente 16 elementos obligatorios"},
	{"validar_variables_obligatorias", rules.RuleRequiredVariables, "🏗️ Required Variables",
		"🏗️ [BÁSICAS] Verifica que estén presentes client, project, environment con descriptions"},
	{"validar_tipos_datos", rules.RuleSmartTypes, "⚙️ Data Types",
		"⚙️ [AVANZADAS] Valida el uso correcto de tipos de datos inteligentes (map(object()), list(object()), etc.)"},
	{"validar_for_each", rules.RuleForEach, "⚙️ for_each Usage",
		"⚙️ [AVANZADAS] Valida que se use for_each en lugar de count para recursos múltiples"},
	{"validar_cifrado_obligatorio", rules.RuleEncryption, "🔒 Mandatory Encryption",
		"🔒 [SEGURIDAD] Valida que el cifrado esté habilitado por defecto en todos los recursos"},
	{"validar_acceso_publico", rules.RulePublicAccess, "🔒 Public Access",
		"🔒 [SEGURIDAD] Valida que el acceso público esté bloqueado por defecto"},
	{"validar_readme_estructura", rules.RuleReadmeStructure, "📄 README Structure",
		"📄 [DOCUMENTACIÓN] Valida que el README.md tenga las secciones obligatorias en el orden correcto"},
	{"validar_changelog", rules.RuleChangelog, "📄 CHANGELOG",
		"📄 [DOCUMENTACIÓN] Valida que el CHANGELOG.md siga el formato Keep a Changelog"},
}

// supplementaryRuleTools make every remaining catalog rule callable.
var supplementaryRuleTools = []ruleTool{
	{"validar_convenciones_nomenclatura", rules.RuleNamingConventions, "🏗️ Naming Conventions",
		"🏗️ [BÁSICAS] Valida que resource_names combine client, project y environment"},
	{"validar_sistema_etiquetado", rules.RuleTagging, "🏗️ Tagging",
		"🏗️ [BÁSICAS] Valida el sistema de etiquetado de 2 niveles (default_tags en el consumidor, merge de tags por recurso)"},
	{"validar_sample_funcional", rules.RuleSampleValues, "🏗️ Functional Sample",
		"🏗️ [BÁSICAS] Valida que terraform.tfvars.sample asigne las variables obligatorias"},
	{"validar_validaciones_variables", rules.RuleVariableValidations, "⚙️ Variable Validations",
		"⚙️ [AVANZADAS] Valida los bloques validation de las variables obligatorias"},
	{"validar_transformaciones_locals", rules.RuleLocalsTransforms, "⚙️ Locals Transformations",
		"⚙️ [AVANZADAS] Valida que las transformaciones en locals sean simples"},
	{"validar_outputs", rules.RuleOutputs, "⚙️ Outputs",
		"⚙️ [AVANZADAS] Valida que los outputs tengan description y se expongan por clave"},
	{"validar_provider", rules.RuleProviderConfiguration, "⚙️ Provider Configuration",
		"⚙️ [AVANZADAS] Valida el provider aws y las versiones mínimas requeridas"},
	{"validar_forzar_tls", rules.RuleForceTLS, "🔒 Enforced TLS",
		"🔒 [SEGURIDAD] Valida que se fuerce TLS en todos los endpoints"},
	{"validar_menor_privilegio", rules.RuleLeastPrivilege, "🔒 Least Privilege",
		"🔒 [SEGURIDAD] Valida que las políticas IAM no usen comodines"},
	{"validar_logging_monitoreo", rules.RuleLoggingMonitoring, "🔒 Logging and Monitoring",
		"🔒 [SEGURIDAD] Valida logging, versionado y retención habilitados"},
	{"validar_configuracion_red", rules.RuleNetwork, "🔒 Network Configuration",
		"🔒 [SEGURIDAD] Valida DNS en VPC, IPs públicas y ACLs de red abiertas"},
	{"validar_sample_readme", rules.RuleSampleReadme, "📄 Sample README",
		"📄 [DOCUMENTACIÓN] Valida los pasos y comandos del README del ejemplo"},
	{"validar_config_terraform_docs", rules.RuleTerraformDocsConfig, "📄 terraform-docs Configuration",
		"📄 [DOCUMENTACIÓN] Valida que .terraform-docs.yml inyecte la documentación en README.md"},
	{"validar_descripciones", rules.RuleDescriptions, "📄 Descriptions",
		"📄 [DOCUMENTACIÓN] Valida que todas las variables y outputs tengan description"},
	{"validar_tags_release", rules.RuleReleaseTags, "📄 Release Tags",
		"📄 [DOCUMENTACIÓN] Compara las versiones del CHANGELOG.md con los tags de git"},
}

// NewToolRegistry builds every tool over m and g.
func NewToolRegistry(m *manager.Manager, g *templates.Generator) (*ToolRegistry, error) {
	reg := &ToolRegistry{byName: make(map[string]*Tool)}

	add := func(t *Tool, err error) error {
		if err != nil {
			return err
		}
		if _, exists := reg.byName[t.Name()]; exists {
			return fmt.Errorf("duplicate tool name: %s", t.Name())
		}
		reg.tools = append(reg.tools, t)
		reg.byName[t.Name()] = t
		return nil
	}

	for _, rt := range primaryRuleTools {
		if err := add(newRuleTool(m, rt)); err != nil {
			return nil, err
		}
	}
	for _, t := range []*Tool{
		readmeTemplateTool(g),
		changelogTemplateTool(g),
		terraformDocsTemplateTool(g),
		statsTool(m),
		reportTool(m),
	} {
		if err := add(t, nil); err != nil {
			return nil, err
		}
	}
	for _, rt := range supplementaryRuleTools {
		if err := add(newRuleTool(m, rt)); err != nil {
			return nil, err
		}
	}
	if err := add(sampleReadmeTemplateTool(g), nil); err != nil {
		return nil, err
	}

	return reg, nil
}

// Lookup returns the tool registered under name.
func (r *ToolRegistry) Lookup(name string) (*Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Definitions returns every tool definition in registry order.
func (r *ToolRegistry) Definitions() []mcp.Tool {
	defs := make([]mcp.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.definition)
	}
	return defs
}

func (r *ToolRegistry) Len() int {
	return len(r.tools)
}

// newRuleTool derives the tool's arguments from the inputs the rule reads.
// Rules that inspect the module directory take only the module path.
func newRuleTool(m *manager.Manager, rt ruleTool) (*Tool, error) {
	rule, err := m.Lookup(rt.rule)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", rt.name, err)
	}

	inputs := rule.Inputs
	moduleScoped := slices.Contains(inputs, manager.ModuleDir)
	if moduleScoped {
		inputs = []string{manager.ModuleDir}
	}

	opts := []mcp.ToolOption{mcp.WithDescription(rt.description)}
	for _, input := range inputs {
		arg, ok := inputArguments[input]
		if !ok {
			return nil, fmt.Errorf("tool %s: no argument supplies %s", rt.name, input)
		}
		opts = append(opts, mcp.WithString(arg.name, mcp.Required(), mcp.Description(arg.description)))
	}

	handle := func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
		var in manager.Inputs
		if moduleScoped {
			dir, err := requireString(req, ArgModulePath)
			if err != nil {
				return "", err
			}
			in = manager.ModuleInputs(dir)
		} else {
			files := make(manager.FileInputs, len(inputs))
			for _, input := range inputs {
				p, err := requireString(req, inputArguments[input].name)
				if err != nil {
					return "", err
				}
				files[input] = p
			}
			in = files
		}

		res, err := m.Invoke(rt.rule, in)
		if err != nil {
			return "", err
		}
		return manager.FormatResult(rt.title, res), nil
	}

	return &Tool{definition: mcp.NewTool(rt.name, opts...), handle: handle}, nil
}

func readmeTemplateTool(g *templates.Generator) *Tool {
	return &Tool{
		definition: mcp.NewTool("generar_plantilla_readme",
			mcp.WithDescription("🛠️ [GENERACIÓN] Genera una plantilla completa de README.md según todas las reglas de documentación"),
			mcp.WithString(ArgModuleName, mcp.Required(), mcp.Description("Nombre del módulo Terraform")),
			mcp.WithString(ArgResourceType,
				mcp.Description("Tipo de recurso principal (ej: s3, lambda, rds)"),
				mcp.DefaultString(templates.DefaultResourceType)),
		),
		handle: func(_ context.Context, req mcp.CallToolRequest) (string, error) {
			name, err := requireString(req, ArgModuleName)
			if err != nil {
				return "", err
			}
			doc, err := g.Readme(name, req.GetString(ArgResourceType, templates.DefaultResourceType))
			if err != nil {
				return "", err
			}
			return fenced("📄", "README.md template generated for "+name, "markdown", doc), nil
		},
	}
}

func changelogTemplateTool(g *templates.Generator) *Tool {
	return &Tool{
		definition: mcp.NewTool("generar_plantilla_changelog",
			mcp.WithDescription("🛠️ [GENERACIÓN] Genera una plantilla completa de CHANGELOG.md con formato Keep a Changelog"),
		),
		handle: func(context.Context, mcp.CallToolRequest) (string, error) {
			doc, err := g.Changelog()
			if err != nil {
				return "", err
			}
			return fenced("📄", "CHANGELOG.md template generated", "markdown", doc), nil
		},
	}
}

func terraformDocsTemplateTool(g *templates.Generator) *Tool {
	return &Tool{
		definition: mcp.NewTool("generar_config_terraform_docs",
			mcp.WithDescription("🛠️ [GENERACIÓN] Genera la configuración completa de .terraform-docs.yml"),
		),
		handle: func(context.Context, mcp.CallToolRequest) (string, error) {
			doc, err := g.TerraformDocsConfig()
			if err != nil {
				return "", err
			}
			return fenced("⚙️", ".terraform-docs.yml configuration generated", "yaml", doc), nil
		},
	}
}

func sampleReadmeTemplateTool(g *templates.Generator) *Tool {
	return &Tool{
		definition: mcp.NewTool("generar_plantilla_sample_readme",
			mcp.WithDescription("🛠️ [GENERACIÓN] Genera la plantilla del README.md del directorio sample/"),
			mcp.WithString(ArgModuleName, mcp.Required(), mcp.Description("Nombre del módulo Terraform")),
		),
		handle: func(_ context.Context, req mcp.CallToolRequest) (string, error) {
			name, err := requireString(req, ArgModuleName)
			if err != nil {
				return "", err
			}
			doc, err := g.SampleReadme(name)
			if err != nil {
				return "", err
			}
			return fenced("📄", "sample/README.md template generated for "+name, "markdown", doc), nil
		},
	}
}

func statsTool(m *manager.Manager) *Tool {
	return &Tool{
		definition: mcp.NewTool("obtener_estadisticas_reglas",
			mcp.WithDescription("📊 [INFO] Obtiene estadísticas completas sobre las reglas IaC disponibles por categoría"),
		),
		handle: func(context.Context, mcp.CallToolRequest) (string, error) {
			return manager.FormatStats(m.Stats()), nil
		},
	}
}

func reportTool(m *manager.Manager) *Tool {
	return &Tool{
		definition: mcp.NewTool("generar_reporte_completo",
			mcp.WithDescription("📊 [REPORTE] Genera un reporte completo de validación aplicando todas las reglas IaC organizadas por categorías"),
			mcp.WithString(ArgModulePath, mcp.Required(), mcp.Description("Ruta al directorio del módulo Terraform")),
		),
		handle: func(ctx context.Context, req mcp.CallToolRequest) (string, error) {
			dir, err := requireString(req, ArgModulePath)
			if err != nil {
				return "", err
			}
			rep, err := m.Report(ctx, dir)
			if err != nil {
				return "", err
			}
			return m.FormatReport(rep), nil
		},
	}
}

func requireString(req mcp.CallToolRequest, key string) (string, error) {
	v, err := req.RequireString(key)
	if err != nil || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingArgument, key)
	}
	return v, nil
}

func fenced(icon, title, lang, body string) string {
	return fmt.Sprintf("%s **%s**\n\n```%s\n%s\n```", icon, title, lang, body)
}
