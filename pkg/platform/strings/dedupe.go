// Package strings holds small list-hygiene helpers for configuration values.
package strings

import "strings"

// DedupeAndTrim trims every element, drops empties and duplicates, and keeps
// first-occurrence order. Used for comma-separated config lists where stray
// whitespace and repeats are common.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, dup := seen[trimmed]; dup {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
