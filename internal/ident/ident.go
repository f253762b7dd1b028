// internal/ident/ident.go
// Package ident classifies and derives the identifiers accepted by detail
// endpoints: canonical UUIDs and human-readable slugs.
package ident

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// IsUUID reports whether s is a canonical 8-4-4-4-12 UUID string.
// Alternative encodings accepted by uuid.Parse (braced, urn-prefixed,
// undashed) are rejected so that slug lookups are not misrouted.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// Slugify derives a URL-safe slug from a title or name: lowercase, strip
// characters that are not alphanumeric, space or hyphen, collapse whitespace
// runs to single hyphens, collapse repeated hyphens, and trim leading and
// trailing hyphens. The rule is deterministic so slugs computed here always
// match slugs computed by the frontend from the same title.
func Slugify(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	out := strings.Join(strings.Fields(b.String()), "-")
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}
