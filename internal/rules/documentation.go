package rules

import (
	"errors"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Documentation checks the README, CHANGELOG, example README,
// terraform-docs configuration and variable/output descriptions.
type Documentation struct {
	readmeSections   []string
	readmeElements   []string
	readmeExamples   []string
	changelogParts   []string
	sampleSteps      []string
	sampleCommands   []string
	docsConfigKeys   []string
	versionEntry     *regexp.Regexp
	headingPatterns  map[string]*regexp.Regexp
	docsConfigFile   string
	docsBeginMarker  string
	docsEndMarker    string
	placeholderEntry string
}

// NewDocumentation returns the documentation category.
func NewDocumentation() *Documentation {
	d := &Documentation{
		readmeSections: []string{
			"# Módulo Terraform:",
			"## Descripción",
			"## Diagrama de Arquitectura",
			"## Características",
			"## Estructura del Módulo",
			"## Implementación y Configuración",
			"## Parámetros de Entrada",
			"## Estructura de Configuración",
			"## Valores de Salida",
			"## Ejemplos de Uso",
			"## Consideraciones de Seguridad",
			"## Contribución",
		},
		readmeElements: []string{
			"## Requisitos Técnicos",
			"| Requisito | Versión |",
			"### Configuración del Provider",
			"### Convenciones de Nomenclatura",
		},
		readmeExamples: []string{
			"### Ejemplo Básico",
			"### Ejemplo Avanzado",
		},
		changelogParts: []string{
			"# Changelog",
			"[Keep a Changelog]",
			"[Semantic Versioning]",
			"## [Unreleased]",
			"### Added",
			"### Changed",
			"### Deprecated",
			"### Removed",
			"### Fixed",
			"### Security",
		},
		sampleSteps: []string{
			"# Ejemplo de Uso",
			"## Descripción",
			"## Estructura",
			"## Uso Rápido",
			"### 1. Preparación",
			"### 2. Despliegue",
			"### 3. Verificación",
			"### 4. Limpieza",
		},
		sampleCommands: []string{
			"terraform init",
			"terraform plan",
			"terraform apply",
			"terraform destroy",
		},
		docsConfigKeys: []string{
			`formatter: "markdown table"`,
			"output:",
			`file: "README.md"`,
			"mode: inject",
			"sort:",
			"enabled: true",
		},
		versionEntry:     regexp.MustCompile(`\[(\d+\.\d+\.\d+)\] - \d{4}-\d{2}-\d{2}`),
		headingPatterns:  make(map[string]*regexp.Regexp),
		docsConfigFile:   FileTerraformDocs,
		docsBeginMarker:  "BEGIN_TF_DOCS",
		docsEndMarker:    "END_TF_DOCS",
		placeholderEntry: "- N/A",
	}
	for _, h := range slices.Concat(d.readmeSections, d.sampleSteps) {
		d.headingPatterns[h] = regexp.MustCompile(`(?m)^[ \t]*` + regexp.QuoteMeta(h))
	}
	return d
}

// ReadmeSections returns the required README sections in catalog order.
func (d *Documentation) ReadmeSections() []string {
	return slices.Clone(d.readmeSections)
}

// ReadmeStructure checks that every required section is present, in catalog
// order, along with the requirement table, provider and naming subsections
// and both usage examples. YAML front matter is ignored.
func (d *Documentation) ReadmeStructure(readme string) Result {
	var c check

	body, err := stripFrontMatter(readme)
	if err != nil {
		c.warn("README front matter could not be parsed: %v", err)
		body = readme
	}

	found := d.checkOrdered(&c, body, d.readmeSections, "README.md")

	for _, e := range d.readmeElements {
		if !strings.Contains(body, e) {
			c.fail("README.md is missing required element: %s", e)
		}
	}
	for _, e := range d.readmeExamples {
		if !strings.Contains(body, e) {
			c.fail("README.md is missing required example: %s", e)
		}
	}
	if !strings.Contains(body, d.docsBeginMarker) {
		c.warn("README.md has no <!-- %s --> marker for terraform-docs injection", d.docsBeginMarker)
	}

	c.metric(MetricSectionsFound, found)
	c.metric(MetricSectionsRequired, len(d.readmeSections))
	return c.result()
}

// checkOrdered reports every missing heading, then one error if the present
// headings appear in a different order than required. It returns the number
// of headings found.
func (d *Documentation) checkOrdered(c *check, text string, headings []string, doc string) int {
	type position struct {
		heading string
		offset  int
	}
	var present []position
	for _, h := range headings {
		loc := d.headingPatterns[h].FindStringIndex(text)
		if loc == nil {
			c.fail("%s is missing required section: %s", doc, h)
			continue
		}
		present = append(present, position{heading: h, offset: loc[0]})
	}

	actual := slices.Clone(present)
	slices.SortStableFunc(actual, func(a, b position) int { return a.offset - b.offset })
	for i := range actual {
		if actual[i].heading != present[i].heading {
			c.fail("%s sections are out of order: %q appears before %q", doc, actual[i].heading, present[i].heading)
			break
		}
	}
	return len(present)
}

func stripFrontMatter(text string) (string, error) {
	var meta map[string]any
	rest, err := frontmatter.Parse(strings.NewReader(text), &meta)
	if err != nil {
		return "", err
	}
	return string(rest), nil
}

// Changelog checks the Keep a Changelog layout and at least one dated
// semantic version entry. Versions should be listed newest first.
func (d *Documentation) Changelog(changelog string) Result {
	var c check

	for _, p := range d.changelogParts {
		if !strings.Contains(changelog, p) {
			c.fail("CHANGELOG.md is missing required element: %s", p)
		}
	}

	versions := d.Versions(changelog)
	if len(versions) == 0 {
		c.fail("CHANGELOG.md has no version entry formatted as [X.Y.Z] - YYYY-MM-DD")
	}
	for i := 1; i < len(versions); i++ {
		if compareVersions(versions[i-1], versions[i]) <= 0 {
			c.warn("CHANGELOG.md versions should be listed newest first: %s before %s", versions[i-1], versions[i])
			break
		}
	}

	if strings.Contains(changelog, d.placeholderEntry) {
		c.warn("CHANGELOG.md contains N/A entries, remove empty sections or describe the change")
	}

	c.metric(MetricVersionsFound, len(versions))
	return c.result()
}

// Versions returns the dated version entries of a changelog in document order.
func (d *Documentation) Versions(changelog string) []string {
	var versions []string
	for _, m := range d.versionEntry.FindAllStringSubmatch(changelog, -1) {
		versions = append(versions, m[1])
	}
	return versions
}

// compareVersions compares two X.Y.Z strings numerically.
func compareVersions(a, b string) int {
	pa, pb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(pa) && i < len(pb); i++ {
		x, _ := strconv.Atoi(pa[i])
		y, _ := strconv.Atoi(pb[i])
		if x != y {
			return x - y
		}
	}
	return len(pa) - len(pb)
}

// SampleReadme checks the example README: ordered usage steps, the
// terraform lifecycle commands and a pointer to terraform.tfvars.sample.
func (d *Documentation) SampleReadme(readme string) Result {
	var c check

	d.checkOrdered(&c, readme, d.sampleSteps, "sample/README.md")

	for _, cmd := range d.sampleCommands {
		if !strings.Contains(readme, cmd) {
			c.fail("sample/README.md must include the command: %s", cmd)
		}
	}
	if !strings.Contains(readme, "terraform.tfvars.sample") {
		c.fail("sample/README.md must mention terraform.tfvars.sample")
	}

	return c.result()
}

// TerraformDocsConfig checks .terraform-docs.yml at the root of fsys.
func (d *Documentation) TerraformDocsConfig(fsys fs.FS) Result {
	data, err := fs.ReadFile(fsys, d.docsConfigFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Failed("missing %s", d.docsConfigFile)
		}
		return Failed("cannot read %s: %v", d.docsConfigFile, err)
	}
	return d.TerraformDocsContent(string(data))
}

// TerraformDocsContent checks the text of a terraform-docs configuration.
func (d *Documentation) TerraformDocsContent(content string) Result {
	var c check

	var parsed map[string]any
	if err := yaml.Unmarshal([]byte(content), &parsed); err != nil {
		c.fail("%s is not valid YAML: %v", d.docsConfigFile, err)
	}

	for _, key := range d.docsConfigKeys {
		if !strings.Contains(content, key) {
			c.fail("terraform-docs configuration is missing: %s", key)
		}
	}

	if !strings.Contains(content, d.docsBeginMarker) {
		c.fail("terraform-docs template must include %s/%s markers", d.docsBeginMarker, d.docsEndMarker)
	} else if !strings.Contains(content, d.docsEndMarker) {
		c.warn("terraform-docs template opens %s but never closes it with %s", d.docsBeginMarker, d.docsEndMarker)
	}

	return c.result()
}

// Descriptions checks that every variable and output has a description.
func (d *Documentation) Descriptions(variables, outputs string) Result {
	var c check

	vars := blocksOf(variables, "variable")
	for _, v := range vars {
		if !descriptionAttr.MatchString(v.body) {
			c.fail("variable %s has no description", v.label(0))
		}
	}

	outs := blocksOf(outputs, "output")
	for _, o := range outs {
		if !descriptionAttr.MatchString(o.body) {
			c.fail("output %s has no description", o.label(0))
		}
	}

	c.metric(MetricVariablesAnalyzed, len(vars))
	c.metric(MetricOutputsAnalyzed, len(outs))
	return c.result()
}
