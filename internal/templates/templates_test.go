package templates

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iacrules/internal/rules"
)

func fixedGenerator() *Generator {
	return &Generator{Now: func() time.Time {
		return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	}}
}

func TestReadme_PassesReadmeRule(t *testing.T) {
	readme, err := fixedGenerator().Readme("s3-secure", "s3")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(readme, "# Módulo Terraform: s3-secure\n"))
	assert.Contains(t, readme, "s3_config")
	assert.Contains(t, readme, "{client}-{project}-{environment}")
	assert.NotContains(t, readme, "[[")

	r := rules.NewDocumentation().ReadmeStructure(readme)
	assert.True(t, r.Valid, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestReadme_DefaultResourceType(t *testing.T) {
	readme, err := fixedGenerator().Readme("net", "  ")
	require.NoError(t, err)

	assert.Contains(t, readme, DefaultResourceType+"_config")
}

func TestReadme_RequiresModuleName(t *testing.T) {
	_, err := fixedGenerator().Readme(" ", "s3")

	assert.ErrorIs(t, err, ErrMissingModuleName)
}

func TestChangelog_PassesChangelogRule(t *testing.T) {
	changelog, err := fixedGenerator().Changelog()
	require.NoError(t, err)

	assert.Contains(t, changelog, "## [1.0.0] - 2026-10-18")

	r := rules.NewDocumentation().Changelog(changelog)
	assert.True(t, r.Valid, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestTerraformDocsConfig_PassesDocsRule(t *testing.T) {
	cfg, err := fixedGenerator().TerraformDocsConfig()
	require.NoError(t, err)

	assert.Contains(t, cfg, "{{ .Content }}")

	r := rules.NewDocumentation().TerraformDocsContent(cfg)
	assert.True(t, r.Valid, r.Errors)
	assert.Empty(t, r.Warnings)
}

func TestSampleReadme_PassesSampleRule(t *testing.T) {
	readme, err := fixedGenerator().SampleReadme("s3-secure")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(readme, "# Ejemplo de Uso - s3-secure\n"))

	r := rules.NewDocumentation().SampleReadme(readme)
	assert.True(t, r.Valid, r.Errors)
}

func TestRender(t *testing.T) {
	g := fixedGenerator()

	for _, doc := range Documents() {
		out, err := g.Render(doc, "mod", "")
		require.NoError(t, err, doc)
		assert.NotEmpty(t, out, doc)
	}

	_, err := g.Render("license", "mod", "")
	assert.ErrorIs(t, err, ErrUnknownDocument)
}

func TestGenerator_ZeroValueUsesWallClock(t *testing.T) {
	var g Generator

	changelog, err := g.Changelog()
	require.NoError(t, err)

	assert.Regexp(t, `## \[1\.0\.0\] - \d{4}-\d{2}-\d{2}`, changelog)
}
