package utils

import (
	"fmt"
	"regexp"
)

// CompileExcludePatterns compiles the exclude_patterns setting. Blank entries are
// skipped; the first pattern that fails to compile is reported by its position in the list.
func CompileExcludePatterns(patterns []string) ([]*regexp.Regexp, error) {
	var compiled []*regexp.Regexp
	for i, pattern := range patterns {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: exclude_patterns[%d] %q: %v", ErrConfigValidation, i, pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// MatchesAny reports whether s matches at least one of the compiled patterns.
func MatchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
