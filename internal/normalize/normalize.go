// internal/normalize/normalize.go
// Package normalize converts upstream JSON payloads into the key casing the
// frontend contract expects. The upstream CMS emits snake_case keys; the
// public API serves camelCase.
package normalize

import "strings"

// Keys returns a copy of v with every object key rewritten from snake_case to
// camelCase, applied recursively into nested objects and arrays. Array order
// and primitive leaf values are untouched. Values that are not plain decoded
// JSON containers (map[string]any / []any) pass through unmodified, so the
// function is total over any input and never mutates its argument.
func Keys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[camelKey(k)] = Keys(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Keys(e)
		}
		return out
	default:
		return v
	}
}

// camelKey rewrites every occurrence of underscore followed by a lowercase
// letter into the uppercased letter. Keys already in camelCase come back
// unchanged, which makes Keys idempotent.
func camelKey(k string) string {
	if !strings.Contains(k, "_") {
		return k
	}
	var b strings.Builder
	b.Grow(len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c == '_' && i+1 < len(k) && k[i+1] >= 'a' && k[i+1] <= 'z' {
			b.WriteByte(k[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
