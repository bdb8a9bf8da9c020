package regex

import (
	"fmt"
	"regexp"
	"strings"
)

// CombinePatterns joins patterns into a single alternation. An empty list yields nil.
func CombinePatterns(patterns []string, caseInsensitive bool) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	combined := "(?:" + strings.Join(patterns, ")|(?:") + ")"
	if caseInsensitive {
		combined = "(?i)" + combined
	}

	re, err := regexp.Compile(combined)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern list %v: %w", patterns, err)
	}
	return re, nil
}
