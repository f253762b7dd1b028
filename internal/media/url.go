// internal/media/url.go
// Package media rewrites relative media paths returned by the upstream CMS
// into absolute URLs the browser can fetch directly.
package media

import "strings"

// Fields that carry media paths on upstream records. Resolution is applied
// selectively to these, not as a deep walk of arbitrary objects.
var mediaFields = []string{"thumbnail", "image"}

// Resolve rewrites a possibly-relative media path into an absolute URL against
// base. Empty values and already-absolute http/https URLs come back unchanged,
// which makes Resolve idempotent.
func Resolve(raw, base string) string {
	if raw == "" {
		return raw
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(raw, "/")
}

// ResolveItem rewrites the known media-bearing fields of one decoded record
// in place.
func ResolveItem(item map[string]any, base string) {
	for _, f := range mediaFields {
		if s, ok := item[f].(string); ok {
			item[f] = Resolve(s, base)
		}
	}
}

// ResolveResults rewrites the known media-bearing fields on every object item
// of a result list. Non-object items are left alone.
func ResolveResults(results []any, base string) {
	for _, it := range results {
		if m, ok := it.(map[string]any); ok {
			ResolveItem(m, base)
		}
	}
}
