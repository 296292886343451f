package plan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ResolveMembers expands the member globs of a workspace, relative to dir,
// into member directories. Members matching a skip glob are dropped; when
// include globs are given only matching members are kept.
func ResolveMembers(dir string, patterns, skip, include []string) ([]string, error) {
	seen := make(map[string]bool)
	var members []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || !info.IsDir() {
				continue
			}
			rel, err := filepath.Rel(dir, match)
			if err != nil {
				return nil, err
			}
			rel = filepath.ToSlash(rel)
			if seen[rel] {
				continue
			}
			seen[rel] = true

			if matchesAny(skip, rel) {
				continue
			}
			if len(include) > 0 && !matchesAny(include, rel) {
				continue
			}
			members = append(members, rel)
		}
	}

	sort.Strings(members)
	return members, nil
}

// SplitFilter splits a ";" separated member filter, dropping blanks.
func SplitFilter(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func matchesAny(globs []string, member string) bool {
	for _, glob := range globs {
		if ok, _ := filepath.Match(glob, member); ok {
			return true
		}
		if ok, _ := filepath.Match(glob, filepath.Base(member)); ok {
			return true
		}
	}
	return false
}
