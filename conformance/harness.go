// Package conformance provides a test harness for verifying the proxy's
// browser-facing contract against a scripted fake CMS.
package conformance

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/campuskit/campus-proxy-go/internal/server"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
)

// Harness provides a test harness for proxy conformance testing.
type Harness struct {
	proxy *httptest.Server
	cms   *httptest.Server

	// cmsCalls counts requests reaching the fake CMS.
	cmsCalls atomic.Int64

	// failing makes the fake CMS answer 500 to everything when set.
	failing atomic.Bool
}

// Config holds configuration for the conformance test harness.
type Config struct {
	// MediaBaseURL is the absolute base prepended to relative media paths.
	MediaBaseURL string
}

// NewHarness creates a new conformance test harness. The fake CMS serves a
// fixed fixture set covering every proxied collection.
func NewHarness(cfg Config) (*Harness, error) {
	h := &Harness{}

	h.cms = httptest.NewServer(http.HandlerFunc(h.serveCMS))

	up := upstream.New(h.cms.URL, nil, nil)
	mux := server.NewMux(up, server.Options{MediaBaseURL: cfg.MediaBaseURL})
	h.proxy = httptest.NewServer(mux)

	return h, nil
}

// URL returns the base URL of the proxy under test.
func (h *Harness) URL() string {
	return h.proxy.URL
}

// Close shuts down both test servers.
func (h *Harness) Close() {
	h.proxy.Close()
	h.cms.Close()
}

// CMSCalls reports how many requests reached the fake CMS.
func (h *Harness) CMSCalls() int64 {
	return h.cmsCalls.Load()
}

// SetFailing toggles the fake CMS between healthy and hard-down.
func (h *Harness) SetFailing(v bool) {
	h.failing.Store(v)
}

// serveCMS answers like the campus CMS: DRF-style paginated envelopes with
// snake_case keys and relative media paths.
func (h *Harness) serveCMS(w http.ResponseWriter, r *http.Request) {
	h.cmsCalls.Add(1)
	if h.failing.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	items, ok := fixtures[parts[0]]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if len(parts) == 2 {
		for _, item := range items {
			if item["id"] == parts[1] {
				_ = json.NewEncoder(w).Encode(item)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"results":  items,
		"count":    len(items),
		"next":     nil,
		"previous": nil,
	})
}

// fixtures holds the fake CMS data, keyed by collection path.
var fixtures = map[string][]map[string]any{
	"notices": {
		{"id": "6a9c1f2e-0c3b-4f55-9a1d-0e8f2b7c4d10", "title": "Exam Routine", "published_at": "2024-02-01", "thumbnail": "/media/routine.png"},
		{"id": "n2", "title": "Holiday Notice", "published_at": "2024-01-15"},
	},
	"departments": {
		{"id": "d1", "name": "Computer Engineering", "thumbnail": "/media/doce.png"},
	},
	"clubs": {
		{"id": "c1", "name": "ECAST", "image": "/media/ecast.png"},
	},
	"unions": {
		{"id": "u1", "name": "Free Student Union"},
	},
	"gallery": {
		{"id": "g1", "image": "/media/g1.jpg"},
	},
	"research": {
		{"id": "r1", "title": "Annual Report"},
	},
	"programs": {
		{"id": "p1", "name": "BEI", "program_type": "BACHELORS"},
	},
	"events": {
		{"id": "2f1d9c84-5a6b-4e3f-8b21-7c0d4e9f1a23", "title": "Tech Expo 2024", "start_date": "2024-03-02", "clubs": []any{}, "unions": []any{map[string]any{"id": "u1"}}},
		{"id": "e2", "title": "Hackathon", "start_date": "2024-03-01", "clubs": []any{map[string]any{"id": "c1"}}, "unions": []any{}},
	},
}

// getJSON fetches a proxy path and decodes the body into out.
func (h *Harness) getJSON(t *testing.T, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(h.proxy.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("decode %s: %v (%s)", path, err, body)
		}
	}
	return resp
}

// RunConformanceTests runs the full contract suite against the proxy.
func (h *Harness) RunConformanceTests(t *testing.T) {
	t.Run("HealthEndpoints", h.testHealthEndpoints)
	t.Run("CanonicalListShape", h.testCanonicalListShape)
	t.Run("EmptyOnUpstreamFailure", h.testEmptyOnUpstreamFailure)
	t.Run("EventAggregation", h.testEventAggregation)
	t.Run("DetailResolution", h.testDetailResolution)
	t.Run("DetailNotFound", h.testDetailNotFound)
}

// testHealthEndpoints verifies liveness and readiness probes.
func (h *Harness) testHealthEndpoints(t *testing.T) {
	resp := h.getJSON(t, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	resp = h.getJSON(t, "/readyz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readyz status = %d", resp.StatusCode)
	}
}

// testCanonicalListShape verifies every list endpoint answers the canonical
// envelope with camelCase keys and absolute media URLs.
func (h *Harness) testCanonicalListShape(t *testing.T) {
	paths := []string{"/api/notices", "/api/departments", "/api/clubs", "/api/unions",
		"/api/gallery", "/api/research", "/api/programs", "/api/events"}
	for _, path := range paths {
		var body map[string]any
		resp := h.getJSON(t, path, &body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d", path, resp.StatusCode)
			continue
		}
		for _, key := range []string{"results", "count", "next", "previous"} {
			if _, ok := body[key]; !ok {
				t.Errorf("%s body missing %q: %v", path, key, body)
			}
		}
	}

	var notices map[string]any
	h.getJSON(t, "/api/notices", &notices)
	first := notices["results"].([]any)[0].(map[string]any)
	if _, ok := first["publishedAt"]; !ok {
		t.Errorf("notice keys not camelCase: %v", first)
	}
	if thumb, _ := first["thumbnail"].(string); !strings.HasPrefix(thumb, "http") {
		t.Errorf("thumbnail not absolute: %q", thumb)
	}
}

// testEmptyOnUpstreamFailure verifies lists degrade to the empty canonical
// envelope, with status 200, while the CMS is down.
func (h *Harness) testEmptyOnUpstreamFailure(t *testing.T) {
	h.SetFailing(true)
	defer h.SetFailing(false)

	for _, path := range []string{"/api/notices", "/api/events"} {
		var body map[string]any
		resp := h.getJSON(t, path, &body)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d during outage, want 200", path, resp.StatusCode)
		}
		if results, ok := body["results"].([]any); !ok || len(results) != 0 {
			t.Errorf("%s results = %v during outage, want []", path, body["results"])
		}
		if body["count"] != float64(0) {
			t.Errorf("%s count = %v during outage, want 0", path, body["count"])
		}
	}
}

// testEventAggregation verifies the merged feed is date-descending and each
// item carries its inferred source.
func (h *Harness) testEventAggregation(t *testing.T) {
	var body map[string]any
	h.getJSON(t, "/api/events", &body)
	results := body["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("merged results = %d items: %v", len(results), results)
	}
	var prev string
	for i, raw := range results {
		item := raw.(map[string]any)
		if item["source"] != "campus" && item["source"] != "club" {
			t.Errorf("item %d source = %v", i, item["source"])
		}
		date, _ := item["startDate"].(string)
		if prev != "" && date > prev {
			t.Errorf("results not date-descending at %d: %q after %q", i, date, prev)
		}
		prev = date
	}
}

// testDetailResolution verifies UUID fast-path and slug fallback resolution.
func (h *Harness) testDetailResolution(t *testing.T) {
	const expoID = "2f1d9c84-5a6b-4e3f-8b21-7c0d4e9f1a23"

	var byUUID map[string]any
	resp := h.getJSON(t, "/api/events/"+expoID, &byUUID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("uuid resolution status = %d", resp.StatusCode)
	}
	if byUUID["title"] != "Tech Expo 2024" {
		t.Errorf("resolved wrong event: %v", byUUID)
	}

	var bySlug map[string]any
	resp = h.getJSON(t, "/api/events/tech-expo-2024", &bySlug)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("slug resolution status = %d", resp.StatusCode)
	}
	if bySlug["id"] != expoID {
		t.Errorf("resolved wrong event: %v", bySlug)
	}
	if bySlug["source"] != "campus" {
		t.Errorf("event source = %v, want campus", bySlug["source"])
	}

	var club map[string]any
	resp = h.getJSON(t, "/api/clubs/ecast", &club)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("club slug resolution status = %d", resp.StatusCode)
	}
	if club["name"] != "ECAST" {
		t.Errorf("resolved wrong club: %v", club)
	}
}

// testDetailNotFound verifies the 404 contract.
func (h *Harness) testDetailNotFound(t *testing.T) {
	var body map[string]any
	resp := h.getJSON(t, "/api/events/no-such-event", &body)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if body["error"] != "Event not found" {
		t.Errorf(`error = %v, want "Event not found"`, body["error"])
	}
}
