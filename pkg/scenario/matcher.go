package scenario

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// URLMatcher checks a spawned page's URL. A plain pattern matches as a
// substring; a pattern with glob metacharacters must match the whole URL.
type URLMatcher struct {
	pattern string
	g       glob.Glob
}

// NewURLMatcher compiles pattern. An empty pattern is an error.
func NewURLMatcher(pattern string) (*URLMatcher, error) {
	if pattern == "" {
		return nil, fmt.Errorf("url pattern is empty")
	}
	m := &URLMatcher{pattern: pattern}
	if strings.ContainsAny(pattern, "*?[{") {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid url pattern %q: %w", pattern, err)
		}
		m.g = g
	}
	return m, nil
}

// Match reports whether url satisfies the pattern.
func (m *URLMatcher) Match(url string) bool {
	if m.g != nil {
		return m.g.Match(url)
	}
	return strings.Contains(url, m.pattern)
}

// String returns the pattern.
func (m *URLMatcher) String() string {
	return m.pattern
}
