package manager

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iacrules/internal/rules"
)

func TestFormatResult(t *testing.T) {
	r := rules.Result{
		Valid:    false,
		Errors:   []string{"missing required file: main.tf"},
		Warnings: []string{"unexpected root file versions.tf is not part of the standard layout"},
		Metrics:  map[string]int{"elementos_requeridos": 16, "elementos_encontrados": 15},
	}

	out := FormatResult("Module structure", r)

	assert.True(t, strings.HasPrefix(out, "## Module structure\n\n**Status:** ❌ INVALID"))
	assert.Contains(t, out, "- missing required file: main.tf\n")
	assert.Contains(t, out, "### ⚠️ Warnings\n- unexpected root file")
	assert.Less(t, strings.Index(out, "elementos_encontrados"), strings.Index(out, "elementos_requeridos"))
}

func TestFormatResult_ValidWithoutFindings(t *testing.T) {
	out := FormatResult("Changelog", rules.Result{Valid: true, Errors: []string{}, Warnings: []string{}})

	assert.Equal(t, "## Changelog\n\n**Status:** ✅ VALID\n\n", out)
}

func TestFormatReport(t *testing.T) {
	m := newTestManager(t)
	injectRule(m, panickingRule())
	rep, err := m.Report(context.Background(), goodModule)
	require.NoError(t, err)

	out := m.FormatReport(rep)

	assert.Contains(t, out, "# Module Validation Report")
	assert.Contains(t, out, "**Overall:** ❌ INVALID")
	assert.Contains(t, out, "- **Validations:** 24 (23 passed, 1 failed)")
	assert.Contains(t, out, "### ❌ exploding")
	assert.Contains(t, out, "### ✅ module_structure")

	basics := strings.Index(out, "## Basics")
	security := strings.Index(out, "## Security")
	assert.True(t, basics > 0 && basics < security)
}

func TestFormatStats(t *testing.T) {
	out := FormatStats(newTestManager(t).Stats())

	assert.Contains(t, out, "**Version:** "+rules.CatalogVersion)
	assert.Contains(t, out, "**Total rules:** 23")
	assert.Contains(t, out, "### Documentation\n- **Count:** 6\n")
	assert.Contains(t, out, "readme, changelog, terraform-docs, sample-readme")
}
