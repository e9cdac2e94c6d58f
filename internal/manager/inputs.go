package manager

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ModuleDir names the module directory itself in Rule.Inputs.
const ModuleDir = "."

// ErrMissingInput is returned when an Inputs cannot resolve a file a rule reads.
var ErrMissingInput = errors.New("missing input")

// Inputs resolves the module-relative names in Rule.Inputs to paths.
type Inputs interface {
	Path(name string) (string, error)
}

// ModuleInputs resolves every name relative to a module root directory.
type ModuleInputs string

func (m ModuleInputs) Path(name string) (string, error) {
	if strings.TrimSpace(string(m)) == "" {
		return "", fmt.Errorf("%w: module path", ErrMissingInput)
	}
	return filepath.Join(string(m), filepath.FromSlash(name)), nil
}

// FileInputs maps module-relative names to explicit paths, as supplied by a
// tool call that points at individual files.
type FileInputs map[string]string

func (f FileInputs) Path(name string) (string, error) {
	p, ok := f[name]
	if !ok || strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingInput, name)
	}
	return p, nil
}
