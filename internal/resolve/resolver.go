// internal/resolve/resolver.go
// Package resolve locates a single upstream entity from an identifier that may
// be either a canonical UUID or a human slug.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/campuskit/campus-proxy-go/internal/ident"
	"github.com/campuskit/campus-proxy-go/internal/query"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
)

const (
	// scanLimit bounds the fallback list scan.
	scanLimit = 200
	// debugSlugCount caps the candidate slugs attached to not-found errors.
	debugSlugCount = 5
)

// ErrNotFound reports that no entity matches the identifier. It is a normal
// user-facing outcome, distinct from upstream failures.
var ErrNotFound = errors.New("no entity matches identifier")

// NotFoundError carries diagnostic context for a failed resolution. The
// candidate slugs are debugging aid only, never part of the contract.
type NotFoundError struct {
	Resource       string
	ID             string
	CandidateSlugs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Resource, e.ID, ErrNotFound)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Resolver resolves UUID-or-slug identifiers against upstream resources.
type Resolver struct {
	up  *upstream.Client
	log *slog.Logger
}

// New creates a Resolver.
func New(up *upstream.Client, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{up: up, log: log}
}

// Resolve finds exactly one entity of the given resource. UUID-shaped
// identifiers try the direct detail endpoint first (cheaper than scanning a
// list); on failure, or for slug identifiers, it falls back to a bounded list
// scan matching by UUID equality or by slug derived from each candidate's
// title or name. The extra values forward any of the resource's allow-listed
// filters to narrow the scan.
func (r *Resolver) Resolve(ctx context.Context, spec query.ResourceSpec, id string, extra url.Values) (map[string]any, error) {
	isUUID := ident.IsUUID(id)
	if isUUID {
		obj, err := r.up.FetchObject(ctx, spec.Name, spec.Path+id+"/", nil, spec.CacheTTL)
		if err == nil {
			return obj, nil
		}
		r.log.Debug("direct detail lookup failed, falling back to list scan",
			"resource", spec.Name, "id", id, "error", err)
	}

	q := query.Translate(extra, spec)
	q.Set("limit", strconv.Itoa(scanLimit))
	q.Del("offset")
	list, err := r.up.FetchList(ctx, spec.Name, spec.Path, q, spec.CacheTTL)
	if err != nil {
		return nil, err
	}

	var slugs []string
	for _, it := range list.Results {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if isUUID {
			if s, _ := m["id"].(string); s == id {
				return m, nil
			}
			continue
		}
		slug := ident.Slugify(displayName(m))
		if slug != "" && len(slugs) < debugSlugCount {
			slugs = append(slugs, slug)
		}
		if slug != "" && slug == id {
			return m, nil
		}
	}

	return nil, &NotFoundError{Resource: spec.Name, ID: id, CandidateSlugs: slugs}
}

// displayName picks the field a slug is derived from.
func displayName(m map[string]any) string {
	if s, ok := m["title"].(string); ok && s != "" {
		return s
	}
	if s, ok := m["name"].(string); ok {
		return s
	}
	return ""
}
