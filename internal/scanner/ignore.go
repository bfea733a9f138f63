package scanner

import (
	"path"
	"strings"
)

// Matcher evaluates ignore patterns against repository-relative paths.
//
// Three pattern forms are supported:
//   - "name/"    directory pattern: matches any path component equal to
//     "name" (case-sensitive, full component boundary)
//   - "*.ext" / "prefix*"  wildcard patterns on the file name
//   - anything else  plain substring match on the relative path
type Matcher struct {
	patterns []string
}

// NewMatcher creates a matcher from the given patterns.
func NewMatcher(patterns []string) *Matcher {
	return &Matcher{patterns: patterns}
}

// Match reports whether relPath is rejected by any pattern.
// relPath uses forward slashes.
func (m *Matcher) Match(relPath string) bool {
	for _, pattern := range m.patterns {
		if matchPattern(pattern, relPath) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, relPath string) bool {
	switch {
	case strings.HasSuffix(pattern, "/"):
		segment := strings.TrimSuffix(pattern, "/")
		for _, component := range strings.Split(relPath, "/") {
			if component == segment {
				return true
			}
		}
		return false

	case strings.Contains(pattern, "*"):
		name := path.Base(relPath)
		if strings.HasPrefix(pattern, "*.") {
			return strings.HasSuffix(name, pattern[1:])
		}
		if strings.HasSuffix(pattern, "*") {
			return strings.HasPrefix(name, strings.TrimSuffix(pattern, "*"))
		}
		// Wildcards elsewhere are treated as literal substrings.
		return strings.Contains(relPath, pattern)

	default:
		return strings.Contains(relPath, pattern)
	}
}
