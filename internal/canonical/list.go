// internal/canonical/list.go
// Package canonical defines the paginated-list contract this proxy guarantees
// to the frontend regardless of upstream health, and the guard that coerces
// arbitrary upstream payloads into it.
package canonical

// List is the canonical paginated-list shape: {results, count, next, previous}.
// Results is always a non-nil array. Count is the server-side total for the
// filter, not necessarily len(Results). Next and Previous are opaque cursors,
// each a string or null.
type List struct {
	Results  []any `json:"results"`
	Count    int   `json:"count"`
	Next     any   `json:"next"`
	Previous any   `json:"previous"`
}

// Empty returns the well-typed empty state: zero items, zero count, null cursors.
func Empty() List {
	return List{Results: []any{}}
}

// Guard coerces an arbitrary decoded JSON value into a List. Fields that are
// absent or of the wrong type fall back to empty-safe defaults. This is the
// single point where "upstream returned garbage" becomes "well-typed empty
// state"; it never panics and never returns a nil Results slice.
func Guard(v any) List {
	out := Empty()
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	if rs, ok := m["results"].([]any); ok {
		out.Results = rs
	}
	if c, ok := m["count"].(float64); ok && c >= 0 {
		out.Count = int(c)
	}
	if s, ok := m["next"].(string); ok {
		out.Next = s
	}
	if s, ok := m["previous"].(string); ok {
		out.Previous = s
	}
	return out
}
