package rules

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleStructure_CompleteModule(t *testing.T) {
	r := NewBasics().ModuleStructure(goodModuleFS())

	assert.True(t, r.Valid)
	assert.Empty(t, r.Errors)
	assert.Equal(t, 16, r.Metrics[MetricElementsFound])
	assert.Equal(t, 16, r.Metrics[MetricElementsRequired])
}

func TestModuleStructure_EachMissingRootFile(t *testing.T) {
	basics := NewBasics()
	for _, name := range []string{".gitignore", "CHANGELOG.md", "README.md", "data.tf", "locals.tf", "main.tf", "outputs.tf", "providers.tf", "variables.tf"} {
		t.Run(name, func(t *testing.T) {
			fsys := goodModuleFS()
			delete(fsys, name)

			r := basics.ModuleStructure(fsys)

			assert.False(t, r.Valid)
			assert.Equal(t, 15, r.Metrics[MetricElementsFound])
			assert.Equal(t, 1, countContaining(r.Errors, "missing required file: "+name))
			assert.True(t, anyContains(r.Errors, "found 15 elements, required 16"))
		})
	}
}

func TestModuleStructure_MissingSampleDirectory(t *testing.T) {
	fsys := goodModuleFS()
	for name := range fsys {
		if len(name) > 7 && name[:7] == "sample/" {
			delete(fsys, name)
		}
	}

	r := NewBasics().ModuleStructure(fsys)

	assert.False(t, r.Valid)
	assert.Equal(t, 9, r.Metrics[MetricElementsFound])
	assert.True(t, anyContains(r.Errors, "missing required directory: sample/"))
	assert.False(t, anyContains(r.Errors, "sample/README.md"), "sample files are not probed without the directory")
}

func TestModuleStructure_SampleIsAFile(t *testing.T) {
	fsys := goodModuleFS()
	for name := range fsys {
		if len(name) > 7 && name[:7] == "sample/" {
			delete(fsys, name)
		}
	}
	fsys["sample"] = &fstest.MapFile{Data: []byte("not a dir")}

	r := NewBasics().ModuleStructure(fsys)

	assert.True(t, anyContains(r.Errors, "missing required directory: sample/"))
}

func TestModuleStructure_UnexpectedRootFileWarns(t *testing.T) {
	fsys := goodModuleFS()
	fsys["versions.tf"] = &fstest.MapFile{Data: []byte("")}

	r := NewBasics().ModuleStructure(fsys)

	assert.True(t, r.Valid)
	assert.Equal(t, 16, r.Metrics[MetricElementsFound])
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "versions.tf")
}

type failingFS struct{ fstest.MapFS }

func (f failingFS) Open(name string) (fs.File, error) {
	if name == "main.tf" {
		return nil, errors.New("permission denied")
	}
	return f.MapFS.Open(name)
}

func (f failingFS) Stat(name string) (fs.FileInfo, error) {
	if name == "main.tf" {
		return nil, errors.New("permission denied")
	}
	return f.MapFS.Stat(name)
}

func TestModuleStructure_IOErrorIsReportedInResult(t *testing.T) {
	r := NewBasics().ModuleStructure(failingFS{goodModuleFS()})

	assert.False(t, r.Valid)
	assert.True(t, anyContains(r.Errors, "cannot check main.tf"))
}

func TestNamingConventions(t *testing.T) {
	b := NewBasics()

	r := b.NamingConventions(goodLocals, goodMain)
	assert.True(t, r.Valid)
	assert.Empty(t, r.Warnings)

	r = b.NamingConventions(`locals { prefix = "x" }`, `resource "aws_s3_bucket" "b" {}`)
	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 2)
	assert.Len(t, r.Warnings, 1)
}

func TestRequiredVariables(t *testing.T) {
	b := NewBasics()

	r := b.RequiredVariables(goodVariables)
	assert.True(t, r.Valid, r.Errors)
	assert.Equal(t, 3, r.Metrics[MetricVariablesFound])

	partial := `variable "client" {
  type = string
}

variable "environment" {
  description = "env"
  type        = string
}
`
	r = b.RequiredVariables(partial)
	assert.False(t, r.Valid)
	assert.Equal(t, 2, r.Metrics[MetricVariablesFound])
	assert.ElementsMatch(t, []string{
		"variable client must have a description",
		"missing required variable: project",
		"variable environment must have a validation block",
	}, r.Errors)
}

func TestTagging(t *testing.T) {
	b := NewBasics()

	r := b.Tagging(goodProviders, goodMain)
	assert.True(t, r.Valid)
	assert.Empty(t, r.Warnings)

	r = b.Tagging(`provider "aws" {}`, `resource "aws_s3_bucket" "b" { tags = var.tags }`)
	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 2)
	assert.Equal(t, []string{"main.tf should merge additional_tags into resource tags"}, r.Warnings)
}

func TestTagging_DefaultTagsBelongToTheConsumer(t *testing.T) {
	providers := `provider "aws" {
  default_tags {
    tags = {
      client = var.client
    }
  }
}
`
	r := NewBasics().Tagging(providers, goodMain)

	assert.True(t, r.Valid)
	assert.Equal(t, []string{"default_tags belongs in the consumer's provider, not in the module's providers.tf"}, r.Warnings)

	r = NewBasics().Tagging(goodProviders, goodMain)
	assert.Empty(t, r.Warnings)
}

func TestSampleValues(t *testing.T) {
	b := NewBasics()

	r := b.SampleValues(goodTfvars)
	assert.True(t, r.Valid)
	assert.Empty(t, r.Warnings)
	assert.Equal(t, 3, r.Metrics[MetricVariablesDefined])

	r = b.SampleValues("client = \"[cliente]\"\nproject = \"webapp\"\n")
	assert.False(t, r.Valid)
	assert.Equal(t, []string{"terraform.tfvars.sample is missing variable: environment"}, r.Errors)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "client")
}

func TestSampleValues_IgnoresSimilarNames(t *testing.T) {
	r := NewBasics().SampleValues("client_id = \"x\"\nproject = \"p\"\nenvironment = \"dev\"\n")

	assert.Equal(t, []string{"terraform.tfvars.sample is missing variable: client"}, r.Errors)
}
