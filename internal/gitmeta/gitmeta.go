// Package gitmeta reads release metadata from the git repository that holds
// a module directory.
package gitmeta

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
)

// Info describes the repository enclosing a module.
type Info struct {
	// InRepository is false when no repository encloses the path.
	InRepository bool
	// Tags holds short tag names in lexical order.
	Tags []string
}

// Reader opens repositories. The zero value is ready to use.
type Reader struct{}

// Describe opens the repository enclosing path, searching parent
// directories, and lists its tags. A path outside any repository yields
// Info{InRepository: false} and no error. The repository config is never
// read, so a broken remote section does not affect the result.
func (Reader) Describe(path string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Info{}, nil
		}
		return Info{}, fmt.Errorf("cannot open git repository: %w", err)
	}

	info := Info{InRepository: true}

	iter, err := repo.Tags()
	if err != nil {
		return info, fmt.Errorf("cannot list tags: %w", err)
	}
	defer iter.Close()

	err = iter.ForEach(func(ref *plumbing.Reference) error {
		info.Tags = append(info.Tags, ref.Name().Short())
		return nil
	})
	if err != nil {
		return info, fmt.Errorf("cannot list tags: %w", err)
	}
	slices.Sort(info.Tags)

	return info, nil
}
