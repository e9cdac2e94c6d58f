package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ModuleScanOptions configures FindModules.
type ModuleScanOptions struct {
	// MaxDepth limits recursion below the scan root. The root itself is depth 0.
	MaxDepth int

	// SkipPatterns contains directory names that are never descended into.
	SkipPatterns []string

	// Marker is the file whose presence makes a directory a module.
	Marker string
}

// DefaultModuleScanOptions returns the options used by the CLI.
func DefaultModuleScanOptions() ModuleScanOptions {
	return ModuleScanOptions{
		MaxDepth: 8,
		SkipPatterns: []string{
			".git",
			".terraform",
			"node_modules",
			"vendor",
			// example directories belong to the enclosing module
			"sample",
			"examples",
		},
		Marker: "main.tf",
	}
}

// FindModules returns every directory under scanPath (including scanPath
// itself) that contains the marker file, in lexical order. The walk runs
// inside an os.Root so symlinks cannot lead it outside scanPath.
//
// Usage example:
//
//	dirs, err := fileops.FindModules("./modules", fileops.DefaultModuleScanOptions())
//	if err != nil {
//	    return fmt.Errorf("discover modules: %w", err)
//	}
func FindModules(scanPath string, opts ModuleScanOptions) ([]string, error) {
	rootPath, err := ValidateModuleRoot(scanPath)
	if err != nil {
		return nil, err
	}
	if opts.Marker == "" {
		return nil, errors.New("module marker file name is required")
	}

	root, err := os.OpenRoot(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan root: %w", err)
	}
	defer root.Close()

	var modules []string
	fsys := root.FS()
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == "." {
				return walkErr
			}
			// Skip unreadable directories
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if p != "." {
			if slices.Contains(opts.SkipPatterns, d.Name()) {
				return fs.SkipDir
			}
			if opts.MaxDepth > 0 && strings.Count(p, "/")+1 > opts.MaxDepth {
				return fs.SkipDir
			}
		}

		if info, err := fs.Stat(fsys, path.Join(p, opts.Marker)); err == nil && info.Mode().IsRegular() {
			modules = append(modules, filepath.Join(rootPath, filepath.FromSlash(p)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("module scan failed: %w", err)
	}

	slices.Sort(modules)
	return modules, nil
}
