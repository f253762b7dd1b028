// Package resolve provides tests for UUID-or-slug entity resolution.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/campuskit/campus-proxy-go/internal/query"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
)

var unionsSpec = query.ResourceSpec{
	Name:         "unions",
	Path:         "/unions/",
	DefaultLimit: 20,
}

const goodUUID = "550e8400-e29b-41d4-a716-446655440000"

// fakeUnions serves /unions/<id>/ detail lookups and /unions/ list scans,
// recording the paths hit.
func fakeUnions(items []map[string]any, detailStatus int, paths *[]string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*paths = append(*paths, r.URL.Path)
		if strings.TrimPrefix(r.URL.Path, "/unions/") != "" {
			// detail endpoint
			if detailStatus != http.StatusOK {
				w.WriteHeader(detailStatus)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"id": goodUUID, "name": "Free Student Union"})
			return
		}
		var results []any
		for _, it := range items {
			results = append(results, it)
		}
		if results == nil {
			results = []any{}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": results, "count": len(results), "next": nil, "previous": nil,
		})
	}))
}

// TestResolveUUIDDirect verifies a UUID-shaped identifier tries the detail
// endpoint first and returns its record without any list scan.
func TestResolveUUIDDirect(t *testing.T) {
	var paths []string
	ts := fakeUnions(nil, http.StatusOK, &paths)
	defer ts.Close()

	r := New(upstream.New(ts.URL, nil, nil), nil)
	obj, err := r.Resolve(context.Background(), unionsSpec, goodUUID, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if obj["name"] != "Free Student Union" {
		t.Errorf("Resolve() = %v", obj)
	}
	if len(paths) != 1 || paths[0] != "/unions/"+goodUUID+"/" {
		t.Errorf("paths = %v, want single direct detail call", paths)
	}
}

// TestResolveUUIDFallsBackToScan verifies a failing detail endpoint falls
// back to the list scan matched by UUID equality.
func TestResolveUUIDFallsBackToScan(t *testing.T) {
	var paths []string
	ts := fakeUnions([]map[string]any{
		{"id": "other", "name": "Other Union"},
		{"id": goodUUID, "name": "Free Student Union"},
	}, http.StatusInternalServerError, &paths)
	defer ts.Close()

	r := New(upstream.New(ts.URL, nil, nil), nil)
	obj, err := r.Resolve(context.Background(), unionsSpec, goodUUID, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if obj["id"] != goodUUID {
		t.Errorf("Resolve() = %v", obj)
	}
	if len(paths) != 2 {
		t.Errorf("paths = %v, want detail attempt then list scan", paths)
	}
}

// TestResolveSlugSkipsDetailEndpoint verifies a slug identifier goes straight
// to the list scan with slug derivation from titles and names.
func TestResolveSlugSkipsDetailEndpoint(t *testing.T) {
	var paths []string
	ts := fakeUnions([]map[string]any{
		{"id": "u1", "title": "ECAST: Electronics Club!!"},
		{"id": "u2", "name": "Robotics Club"},
	}, http.StatusOK, &paths)
	defer ts.Close()

	r := New(upstream.New(ts.URL, nil, nil), nil)
	obj, err := r.Resolve(context.Background(), unionsSpec, "robotics-club", nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if obj["id"] != "u2" {
		t.Errorf("Resolve() = %v", obj)
	}
	for _, p := range paths {
		if p != "/unions/" {
			t.Errorf("unexpected path %q, slug lookup must not hit the detail endpoint", p)
		}
	}
}

// TestResolveNotFound verifies the not-found outcome carries candidate slugs
// and unwraps to ErrNotFound.
func TestResolveNotFound(t *testing.T) {
	var paths []string
	ts := fakeUnions([]map[string]any{
		{"id": "u1", "title": "Civil Engineering Society"},
	}, http.StatusOK, &paths)
	defer ts.Close()

	r := New(upstream.New(ts.URL, nil, nil), nil)
	_, err := r.Resolve(context.Background(), unionsSpec, "does-not-exist", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	var nfe *NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatal("error is not a *NotFoundError")
	}
	if len(nfe.CandidateSlugs) != 1 || nfe.CandidateSlugs[0] != "civil-engineering-society" {
		t.Errorf("CandidateSlugs = %v", nfe.CandidateSlugs)
	}
}

// TestResolveUpstreamFailureIsNotNotFound verifies an unreachable upstream
// surfaces as an upstream error, never as not-found.
func TestResolveUpstreamFailureIsNotNotFound(t *testing.T) {
	ts := httptest.NewServer(nil)
	ts.Close()

	r := New(upstream.New(ts.URL, nil, nil), nil)
	_, err := r.Resolve(context.Background(), unionsSpec, "any-slug", nil)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want a non-not-found upstream failure", err)
	}
	if !errors.Is(err, upstream.ErrUnreachable) {
		t.Errorf("error = %v, want ErrUnreachable", err)
	}
}

// TestResolveForwardsAllowListedFilters verifies extra request parameters are
// forwarded to the scan only when allow-listed.
func TestResolveForwardsAllowListedFilters(t *testing.T) {
	spec := unionsSpec
	spec.Filters = []query.Filter{{Param: "department"}}

	var gotQuery url.Values
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(map[string]any{"results": []any{}, "count": 0, "next": nil, "previous": nil})
	}))
	defer ts.Close()

	r := New(upstream.New(ts.URL, nil, nil), nil)
	extra := url.Values{"department": {"d-9"}, "type": {"ignored"}}
	_, err := r.Resolve(context.Background(), spec, "some-slug", extra)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound from empty scan", err)
	}
	if got := gotQuery.Get("department"); got != "d-9" {
		t.Errorf("department = %q, want d-9", got)
	}
	if gotQuery.Has("type") {
		t.Error("unlisted filter forwarded to upstream scan")
	}
	if got := gotQuery.Get("limit"); got != "200" {
		t.Errorf("scan limit = %q, want 200", got)
	}
}
