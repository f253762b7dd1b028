// internal/query/translate.go
// Package query translates inbound request parameters into the query-string
// shape the upstream CMS expects: page/limit to offset conversion, allow-listed
// filter forwarding and per-resource value transforms.
package query

import (
	"net/url"
	"strconv"
	"time"
)

// Filter describes one allow-listed filter a resource accepts from clients.
type Filter struct {
	Param     string // inbound query parameter name
	Upstream  string // upstream parameter name; defaults to Param when empty
	Uppercase bool   // upper-case the value before forwarding (enumerated filters)
}

// ResourceSpec describes how one proxied resource talks to the upstream CMS.
type ResourceSpec struct {
	Name         string        // resource tag used in logs and metrics
	Path         string        // upstream collection path, e.g. "/notices/"
	DefaultLimit int           // page size applied when the client sends none
	CacheTTL     time.Duration // upstream response freshness window
	Filters      []Filter      // allow-list; anything not listed is dropped
}

// Translate maps raw inbound query parameters onto the upstream query string.
//
// Pagination: an explicit offset always passes through unchanged, even when
// page and limit are also present. Otherwise a 1-based page is converted to
// offset = (page-1)*limit using the effective limit (client-provided or the
// resource default), floored at zero. Malformed numeric values are treated as
// absent.
//
// search and ordering are forwarded verbatim when non-empty. Allow-listed
// filters are forwarded under their upstream names, upper-cased where the
// resource demands it. Every other inbound parameter is dropped.
func Translate(in url.Values, spec ResourceSpec) url.Values {
	out := url.Values{}

	limit := spec.DefaultLimit
	if n, ok := intParam(in, "limit"); ok && n > 0 {
		limit = n
	}
	out.Set("limit", strconv.Itoa(limit))

	if n, ok := intParam(in, "offset"); ok {
		out.Set("offset", strconv.Itoa(n))
	} else if page, ok := intParam(in, "page"); ok {
		offset := (page - 1) * limit
		if offset < 0 {
			offset = 0
		}
		out.Set("offset", strconv.Itoa(offset))
	}

	if s := in.Get("search"); s != "" {
		out.Set("search", s)
	}
	if o := in.Get("ordering"); o != "" {
		out.Set("ordering", o)
	}

	for _, f := range spec.Filters {
		v := in.Get(f.Param)
		if v == "" {
			continue
		}
		if f.Uppercase {
			v = upper(v)
		}
		name := f.Upstream
		if name == "" {
			name = f.Param
		}
		out.Set(name, v)
	}

	return out
}

// Page returns the 1-based page requested by the client, defaulting to 1.
func Page(in url.Values) int {
	if n, ok := intParam(in, "page"); ok && n > 0 {
		return n
	}
	return 1
}

// Limit returns the page size requested by the client, defaulting to the
// resource default.
func Limit(in url.Values, spec ResourceSpec) int {
	if n, ok := intParam(in, "limit"); ok && n > 0 {
		return n
	}
	return spec.DefaultLimit
}

// intParam parses a numeric query parameter, reporting false for absent or
// malformed values.
func intParam(in url.Values, key string) (int, bool) {
	raw := in.Get(key)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// upper ASCII-uppercases enumerated filter values. Enum values on the upstream
// side are plain ASCII identifiers.
func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}
