package shared

import "strings"

// SplitAliases parses a comma separated alias column
func SplitAliases(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinAliases formats aliases for storage
func JoinAliases(aliases []string) string {
	clean := make([]string, 0, len(aliases))
	for _, a := range aliases {
		a = strings.TrimSpace(strings.ReplaceAll(a, ",", " "))
		if a != "" {
			clean = append(clean, a)
		}
	}
	return strings.Join(clean, ",")
}
