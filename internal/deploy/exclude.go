package deploy

import (
	"path/filepath"
	"strings"
)

// RuleSet is an unordered collection of exclusion rules evaluated against
// root-relative paths. A rule is either a literal path segment (the path is
// excluded when any of its segments equals the rule) or a suffix wildcard of
// the form "*<suffix>" (the path is excluded when it ends with <suffix>).
// Evaluation is "any rule matches".
type RuleSet []string

// DefaultRules returns the exclusion rules applied to project uploads:
// dependency caches, VCS metadata, build output and local-only secrets.
func DefaultRules() RuleSet {
	return RuleSet{
		"node_modules",
		".git",
		".next",
		"__pycache__",
		"*.pyc",
		".env.local",
	}
}

// Match reports whether relPath is excluded by any rule in the set.
// relPath is normalized to forward slashes before matching, so results are
// identical regardless of the local path-separator convention.
func (r RuleSet) Match(relPath string) bool {
	rel := filepath.ToSlash(relPath)
	segments := strings.Split(rel, "/")

	for _, rule := range r {
		if suffix, ok := strings.CutPrefix(rule, "*"); ok {
			if strings.HasSuffix(rel, suffix) {
				return true
			}
			continue
		}
		for _, segment := range segments {
			if segment == rule {
				return true
			}
		}
	}
	return false
}
