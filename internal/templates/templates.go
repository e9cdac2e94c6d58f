// Package templates renders the documentation skeletons of a compliant
// module: README.md, CHANGELOG.md, .terraform-docs.yml and the example
// README under sample/.
package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// DefaultResourceType fills the resource type when callers leave it empty.
const DefaultResourceType = "recurso"

// Document names accepted by Render.
const (
	Readme         = "readme"
	Changelog      = "changelog"
	TerraformDocs  = "terraform-docs"
	SampleReadme   = "sample-readme"
	dateLayout     = "2006-01-02"
	leftDelimiter  = "[["
	rightDelimiter = "]]"
)

var (
	ErrMissingModuleName = errors.New("module name is required")
	ErrUnknownDocument   = errors.New("unknown document")
)

// The documents themselves contain {{ }} (terraform-docs and naming
// placeholders), so templates use [[ ]].
//
//go:embed *.tmpl
var files embed.FS

var parsed = template.Must(
	template.New("templates").Delims(leftDelimiter, rightDelimiter).ParseFS(files, "*.tmpl"),
)

var documentFiles = map[string]string{
	Readme:        "readme.md.tmpl",
	Changelog:     "changelog.md.tmpl",
	TerraformDocs: "terraform-docs.yml.tmpl",
	SampleReadme:  "sample-readme.md.tmpl",
}

// Documents lists the names accepted by Render.
func Documents() []string {
	return []string{Readme, Changelog, TerraformDocs, SampleReadme}
}

// Generator renders documentation templates. Now stamps the changelog's
// first release and defaults to time.Now.
type Generator struct {
	Now func() time.Time
}

// New returns a Generator using the wall clock.
func New() *Generator {
	return &Generator{Now: time.Now}
}

type data struct {
	Module       string
	ResourceType string
	Date         string
}

// Readme renders README.md for module. An empty resourceType becomes
// DefaultResourceType.
func (g *Generator) Readme(module, resourceType string) (string, error) {
	module = strings.TrimSpace(module)
	if module == "" {
		return "", ErrMissingModuleName
	}
	resourceType = strings.TrimSpace(resourceType)
	if resourceType == "" {
		resourceType = DefaultResourceType
	}
	return g.execute(Readme, data{Module: module, ResourceType: resourceType})
}

// Changelog renders CHANGELOG.md with an initial 1.0.0 release dated today.
func (g *Generator) Changelog() (string, error) {
	return g.execute(Changelog, data{Date: g.now().Format(dateLayout)})
}

// TerraformDocsConfig renders .terraform-docs.yml.
func (g *Generator) TerraformDocsConfig() (string, error) {
	return g.execute(TerraformDocs, data{})
}

// SampleReadme renders sample/README.md for module.
func (g *Generator) SampleReadme(module string) (string, error) {
	module = strings.TrimSpace(module)
	if module == "" {
		return "", ErrMissingModuleName
	}
	return g.execute(SampleReadme, data{Module: module})
}

// Render renders a document by name. module and resourceType are ignored by
// documents that do not use them.
func (g *Generator) Render(document, module, resourceType string) (string, error) {
	switch document {
	case Readme:
		return g.Readme(module, resourceType)
	case Changelog:
		return g.Changelog()
	case TerraformDocs:
		return g.TerraformDocsConfig()
	case SampleReadme:
		return g.SampleReadme(module)
	}
	return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownDocument, document, strings.Join(Documents(), ", "))
}

func (g *Generator) now() time.Time {
	if g == nil || g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

func (g *Generator) execute(document string, d data) (string, error) {
	var buf bytes.Buffer
	if err := parsed.ExecuteTemplate(&buf, documentFiles[document], d); err != nil {
		return "", fmt.Errorf("render %s: %w", document, err)
	}
	return buf.String(), nil
}
