package duplicates

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ExcludeMatcher holds regular expressions for paths the scanner must skip.
// Patterns are matched against the slash-separated path relative to the scan root.
type ExcludeMatcher struct {
	patterns []*regexp.Regexp
}

// NewExcludeMatcher compiles the given patterns. Empty strings and lines
// starting with # are ignored.
func NewExcludeMatcher(patterns []string) (*ExcludeMatcher, error) {
	em := &ExcludeMatcher{
		patterns: make([]*regexp.Regexp, 0, len(patterns)),
	}
	for _, p := range patterns {
		if err := em.AddPattern(p); err != nil {
			return nil, err
		}
	}
	return em, nil
}

// AddPattern adds a new exclude pattern
func (em *ExcludeMatcher) AddPattern(patternStr string) error {
	patternStr = strings.TrimSpace(patternStr)
	if patternStr == "" || strings.HasPrefix(patternStr, "#") {
		return nil
	}

	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %s - %w", patternStr, err)
	}

	em.patterns = append(em.patterns, pattern)
	return nil
}

// ShouldIgnore checks if a path should be excluded
func (em *ExcludeMatcher) ShouldIgnore(relativePath string) bool {
	if em == nil {
		return false
	}

	normalisedPath := filepath.ToSlash(relativePath)
	for _, pattern := range em.patterns {
		if pattern.MatchString(normalisedPath) {
			return true
		}
	}
	return false
}

// HasPatterns returns true if there are any patterns
func (em *ExcludeMatcher) HasPatterns() bool {
	return em != nil && len(em.patterns) > 0
}

// Patterns returns the pattern sources
func (em *ExcludeMatcher) Patterns() []string {
	if em == nil {
		return nil
	}
	result := make([]string, 0, len(em.patterns))
	for _, p := range em.patterns {
		result = append(result, p.String())
	}
	return result
}
