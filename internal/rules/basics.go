package rules

import (
	"errors"
	"io/fs"
	"path"
	"regexp"
	"slices"
	"strings"
)

// Basics checks module layout, naming, required variables, tagging and the
// example directory.
type Basics struct {
	rootFiles         []string
	sampleDir         string
	sampleFiles       []string
	requiredElements  int
	requiredVariables []string
	namingPattern     *regexp.Regexp
	declarations      map[string]*regexp.Regexp
	tfvarsAssignments map[string]*regexp.Regexp
	placeholder       *regexp.Regexp
}

// NewBasics returns the basics category with its constant tables.
func NewBasics() *Basics {
	b := &Basics{
		rootFiles: []string{
			FileGitignore,
			FileChangelog,
			FileReadme,
			FileData,
			FileLocals,
			FileMain,
			FileOutputs,
			FileProviders,
			FileVariables,
		},
		sampleDir: DirSample,
		sampleFiles: []string{
			"README.md",
			"data.tf",
			"main.tf",
			"outputs.tf",
			"providers.tf",
			"terraform.tfvars.sample",
		},
		requiredVariables: []string{"client", "project", "environment"},
		namingPattern:     regexp.MustCompile(`\$\{var\.client\}-\$\{var\.project\}-\$\{var\.environment\}`),
		declarations:      make(map[string]*regexp.Regexp),
		tfvarsAssignments: make(map[string]*regexp.Regexp),
		placeholder:       regexp.MustCompile(`^(\[.*\]|<.*>|)$`),
	}
	// root files + the sample directory itself + its files
	b.requiredElements = len(b.rootFiles) + 1 + len(b.sampleFiles)

	for _, name := range b.requiredVariables {
		q := regexp.QuoteMeta(name)
		b.declarations[name] = regexp.MustCompile(`variable\s+"` + q + `"\s*\{`)
		b.tfvarsAssignments[name] = regexp.MustCompile(`(?m)^[ \t]*` + q + `[ \t]*=[ \t]*"?([^"\n]*?)"?[ \t]*$`)
	}
	return b
}

// RequiredElements is the exact number of layout elements a module must have.
func (b *Basics) RequiredElements() int {
	return b.requiredElements
}

// MandatoryVariables returns the variable names every module must declare.
func (b *Basics) MandatoryVariables() []string {
	return slices.Clone(b.requiredVariables)
}

// ModuleStructure checks the required root files, the sample directory and
// its files against fsys, which is rooted at the module directory. The count
// of present elements must match exactly.
func (b *Basics) ModuleStructure(fsys fs.FS) Result {
	var c check
	found := 0

	for _, name := range b.rootFiles {
		ok, err := exists(fsys, name, false)
		switch {
		case err != nil:
			c.fail("cannot check %s: %v", name, err)
		case ok:
			found++
		default:
			c.fail("missing required file: %s", name)
		}
	}

	ok, err := exists(fsys, b.sampleDir, true)
	switch {
	case err != nil:
		c.fail("cannot check %s/: %v", b.sampleDir, err)
	case !ok:
		c.fail("missing required directory: %s/", b.sampleDir)
	default:
		found++
		for _, name := range b.sampleFiles {
			p := path.Join(b.sampleDir, name)
			ok, err := exists(fsys, p, false)
			switch {
			case err != nil:
				c.fail("cannot check %s: %v", p, err)
			case ok:
				found++
			default:
				c.fail("missing required file: %s", p)
			}
		}
	}

	if found != b.requiredElements {
		c.fail("structure incorrect: found %d elements, required %d", found, b.requiredElements)
	}

	// Extra .tf files at the root are allowed but drift from the standard layout.
	if entries, err := fs.ReadDir(fsys, "."); err == nil {
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".tf") || slices.Contains(b.rootFiles, e.Name()) {
				continue
			}
			c.warn("unexpected root file %s is not part of the standard layout", e.Name())
		}
	}

	c.metric(MetricElementsFound, found)
	c.metric(MetricElementsRequired, b.requiredElements)
	return c.result()
}

func exists(fsys fs.FS, name string, wantDir bool) (bool, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if wantDir && !info.IsDir() {
		return false, nil
	}
	return true, nil
}

// NamingConventions checks that locals build resource names from client,
// project and environment and that main uses them.
func (b *Basics) NamingConventions(locals, main string) Result {
	var c check

	if !strings.Contains(locals, "resource_names") {
		c.fail("locals.tf must define resource_names")
	}
	if !b.namingPattern.MatchString(locals) {
		c.fail("locals.tf must build names with the ${var.client}-${var.project}-${var.environment} pattern")
	}
	if !strings.Contains(main, "local.resource_names") {
		c.warn("main.tf should name resources through local.resource_names")
	}

	return c.result()
}

// RequiredVariables checks that client, project and environment are declared
// with descriptions and that environment is validated.
func (b *Basics) RequiredVariables(variables string) Result {
	var c check
	bodies := variableBodies(variables)
	found := 0

	for _, name := range b.requiredVariables {
		if !b.declarations[name].MatchString(variables) {
			c.fail("missing required variable: %s", name)
			continue
		}
		found++

		body := bodies[name]
		if !descriptionAttr.MatchString(body) {
			c.fail("variable %s must have a description", name)
		}
		if name == "environment" && !validationBlock.MatchString(body) {
			c.fail("variable environment must have a validation block")
		}
	}

	c.metric(MetricVariablesFound, found)
	return c.result()
}

// Tagging checks the two-tier tagging convention. Transversal tags come from
// default_tags in the consumer's provider, so the module must not set them;
// the module merges a Name and additional_tags into each resource.
func (b *Basics) Tagging(providers, main string) Result {
	var c check

	if strings.Contains(providers, "default_tags") {
		c.warn("default_tags belongs in the consumer's provider, not in the module's providers.tf")
	}
	if !mergedTags.MatchString(main) {
		c.fail("main.tf must build resource tags with tags = merge(...)")
	}
	if !strings.Contains(main, `"Name"`) {
		c.fail(`main.tf must set a "Name" tag on resources`)
	}
	if !strings.Contains(main, "additional_tags") {
		c.warn("main.tf should merge additional_tags into resource tags")
	}

	return c.result()
}

// SampleValues checks that the example tfvars file assigns concrete values
// to every required variable.
func (b *Basics) SampleValues(tfvars string) Result {
	var c check
	defined := 0

	for _, name := range b.requiredVariables {
		m := b.tfvarsAssignments[name].FindStringSubmatch(tfvars)
		if m == nil {
			c.fail("terraform.tfvars.sample is missing variable: %s", name)
			continue
		}
		defined++
		if b.placeholder.MatchString(strings.TrimSpace(m[1])) {
			c.warn("terraform.tfvars.sample uses a placeholder for %s, it should hold a real value", name)
		}
	}

	c.metric(MetricVariablesDefined, defined)
	return c.result()
}

var (
	descriptionAttr = regexp.MustCompile(`description\s*=`)
	validationBlock = regexp.MustCompile(`validation\s*\{`)
	mergedTags      = regexp.MustCompile(`tags\s*=\s*merge\(`)
)

// variableBodies maps each declared variable to its block body.
func variableBodies(variables string) map[string]string {
	bodies := make(map[string]string)
	for _, b := range blocksOf(variables, "variable") {
		bodies[b.label(0)] = b.body
	}
	return bodies
}
