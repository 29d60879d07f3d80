// internal/mapgen/history.go
package mapgen

import "strings"

func normalizeLocation(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AppendLocation returns history with location appended, unless location is
// blank or normalize-equals the last entry. The input slice is never mutated.
func AppendLocation(history []string, location string) []string {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return history
	}
	if n := len(history); n > 0 && normalizeLocation(history[n-1]) == normalizeLocation(trimmed) {
		return history
	}
	out := make([]string, 0, len(history)+1)
	out = append(out, history...)
	return append(out, trimmed)
}
