package capture

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Allowlist restricts which page URLs the capture session may navigate to.
// An empty allowlist permits every URL.
type Allowlist struct {
	patterns []glob.Glob
	sources  []string
}

// NewAllowlist compiles the given glob patterns (for example
// "https://*.example.com/*").
func NewAllowlist(patterns []string) (*Allowlist, error) {
	al := &Allowlist{sources: patterns}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("capture: invalid URL pattern %q: %w", pattern, err)
		}
		al.patterns = append(al.patterns, g)
	}
	return al, nil
}

// Allows reports whether the URL matches the allowlist.
func (al *Allowlist) Allows(url string) bool {
	if len(al.patterns) == 0 {
		return true
	}
	for _, pattern := range al.patterns {
		if pattern.Match(url) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns as configured.
func (al *Allowlist) Patterns() []string {
	return al.sources
}
