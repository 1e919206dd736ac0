package legacy

import (
	"slices"
	"strings"
)

// NormalizeBraces rewrites double-escaped template placeholders ("{{", "}}")
// into single braces in every string leaf and every mapping key of v.
// Non-string leaves are returned unchanged. Runs of more than two braces
// collapse to one, so the result never contains a double brace and the
// function is idempotent.
//
// When keys collide after normalization ("{{a}}" and "{a}"), the key already
// written with single braces wins. Among escaped spellings the last one in
// sorted order wins.
func NormalizeBraces(v any) any {
	switch t := v.(type) {
	case string:
		return normalizeString(t)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make(map[string]any, len(t))
		for _, k := range keys {
			nk := normalizeString(k)
			if _, taken := out[nk]; taken && k != nk {
				if _, plain := t[nk]; plain {
					continue
				}
			}
			out[nk] = NormalizeBraces(t[k])
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(t))
		for k, val := range t {
			out[NormalizeBraces(k)] = NormalizeBraces(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = NormalizeBraces(val)
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, val := range t {
			out[i] = normalizeString(val)
		}
		return out
	default:
		return v
	}
}

// NormalizeMap is NormalizeBraces for the common mapping case.
func NormalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return NormalizeBraces(m).(map[string]any)
}

func normalizeString(s string) string {
	for strings.Contains(s, "{{") || strings.Contains(s, "}}") {
		s = strings.ReplaceAll(s, "{{", "{")
		s = strings.ReplaceAll(s, "}}", "}")
	}
	return s
}
