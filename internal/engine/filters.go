package engine

import "strings"

// selectFields keeps the available fields that were requested, in available
// order. No request means every available field. The result is never nil.
func selectFields(available, requested []string) []string {
	if len(requested) == 0 {
		return append([]string{}, available...)
	}
	want := make(map[string]bool, len(requested))
	for _, f := range requested {
		want[strings.TrimSpace(f)] = true
	}
	out := make([]string, 0, len(requested))
	for _, f := range available {
		if want[f] {
			out = append(out, f)
		}
	}
	return out
}

// serverFields maps flat fields to the distinct native fields that back
// them, in first-seen order.
func serverFields(fields []string, native func(string) (string, bool)) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range fields {
		n, ok := native(f)
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// SplitFields parses a comma separated field list, dropping blanks.
func SplitFields(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
