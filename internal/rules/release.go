package rules

import (
	"regexp"
	"slices"
	"strings"
)

var semverTag = regexp.MustCompile(`^v?(\d+\.\d+\.\d+)$`)

// ReleaseTags compares the changelog's version entries with the release tags
// of the repository holding the module. Tags may carry a "v" prefix.
// Findings are advisory only.
func (d *Documentation) ReleaseTags(changelog string, tags []string, inRepository bool) Result {
	var c check

	versions := d.Versions(changelog)
	c.metric(MetricVersionsFound, len(versions))
	c.metric(MetricTagsFound, len(tags))

	if !inRepository {
		c.warn("module is not inside a git repository, release tags were not checked")
		return c.result()
	}

	tagged := make(map[string]string, len(tags))
	for _, t := range tags {
		if m := semverTag.FindStringSubmatch(strings.TrimSpace(t)); m != nil {
			tagged[m[1]] = t
		}
	}

	if len(versions) == 0 {
		c.warn("CHANGELOG.md has no versions to compare with release tags")
	} else if _, ok := tagged[versions[0]]; !ok {
		c.warn("latest CHANGELOG.md version %s has no release tag (expected v%s)", versions[0], versions[0])
	}

	var untracked []string
	for v, tag := range tagged {
		if !slices.Contains(versions, v) {
			untracked = append(untracked, tag)
		}
	}
	slices.Sort(untracked)
	for _, tag := range untracked {
		c.warn("release tag %s has no CHANGELOG.md entry", tag)
	}

	return c.result()
}
