// Package events provides tests for the aggregator: subset selection, merge
// ordering, client-side pagination and partial failure isolation.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/campuskit/campus-proxy-go/internal/query"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
)

var eventsSpec = query.ResourceSpec{
	Name:         "events",
	Path:         "/events/",
	DefaultLimit: 10,
	Filters: []query.Filter{
		{Param: "eventType", Upstream: "event_type"},
	},
}

// event builds an upstream event record.
func event(id, startDate string, clubs, depts, unions int) map[string]any {
	return map[string]any{
		"id":          id,
		"title":       "Event " + id,
		"start_date":  startDate,
		"clubs":       refs(clubs),
		"departments": refs(depts),
		"unions":      refs(unions),
	}
}

// fakeCMS serves the global events resource, honoring the club filter the way
// the upstream does and recording each request's query.
func fakeCMS(t *testing.T, all []map[string]any, calls *[]url.Values) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			*calls = append(*calls, r.URL.Query())
		}
		club := r.URL.Query().Get("club")
		var results []any
		for _, e := range all {
			if club != "" && !hasClubRef(e, club) {
				continue
			}
			results = append(results, e)
		}
		if results == nil {
			results = []any{}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": results, "count": len(results), "next": nil, "previous": nil,
		})
	}))
}

func hasClubRef(e map[string]any, club string) bool {
	arr, _ := e["clubs"].([]any)
	for _, c := range arr {
		if m, ok := c.(map[string]any); ok && m["id"] == club {
			return true
		}
	}
	return false
}

// TestAggregateMergeSort covers merged type=all requests: 3 campus and 2 club
// events come back as 5 results sorted strictly descending by date with
// count 5, every item tagged with its source.
func TestAggregateMergeSort(t *testing.T) {
	all := []map[string]any{
		event("c1", "2024-01-01", 0, 1, 0),
		event("c2", "2024-03-01", 0, 0, 1),
		event("c3", "2024-05-01", 1, 1, 0), // club+department: still campus
		event("k1", "2024-02-01", 1, 0, 0),
		event("k2", "2024-04-01", 1, 0, 0),
	}
	ts := fakeCMS(t, all, nil)
	defer ts.Close()

	agg := NewAggregator(upstream.New(ts.URL, nil, nil), eventsSpec, nil, nil)
	list := agg.Aggregate(context.Background(), url.Values{"type": {"all"}, "limit": {"10"}, "page": {"1"}})

	if list.Count != 5 || len(list.Results) != 5 {
		t.Fatalf("count = %d, results = %d, want 5 and 5", list.Count, len(list.Results))
	}
	wantIDs := []string{"c3", "k2", "c2", "k1", "c1"}
	wantSources := []string{"campus", "club", "campus", "club", "campus"}
	for i, it := range list.Results {
		m := it.(map[string]any)
		if m["id"] != wantIDs[i] {
			t.Errorf("results[%d].id = %v, want %v", i, m["id"], wantIDs[i])
		}
		if m["source"] != wantSources[i] {
			t.Errorf("results[%d].source = %v, want %v", i, m["source"], wantSources[i])
		}
	}
}

// TestAggregateMergePagination verifies the in-memory slice for merged pages.
func TestAggregateMergePagination(t *testing.T) {
	all := []map[string]any{
		event("c1", "2024-01-01", 0, 1, 0),
		event("c2", "2024-03-01", 0, 1, 0),
		event("k1", "2024-02-01", 1, 0, 0),
		event("k2", "2024-04-01", 1, 0, 0),
	}
	ts := fakeCMS(t, all, nil)
	defer ts.Close()

	agg := NewAggregator(upstream.New(ts.URL, nil, nil), eventsSpec, nil, nil)
	list := agg.Aggregate(context.Background(), url.Values{"type": {"all"}, "limit": {"2"}, "page": {"2"}})

	if list.Count != 4 {
		t.Errorf("count = %d, want 4 (merged total before slicing)", list.Count)
	}
	if len(list.Results) != 2 {
		t.Fatalf("results = %d, want 2 (page 2 of limit 2)", len(list.Results))
	}
	if got := list.Results[0].(map[string]any)["id"]; got != "k1" {
		t.Errorf("page 2 first id = %v, want k1", got)
	}
}

// TestAggregateClubFilterScenario is the contract scenario: an explicit club
// filter narrows the request to the club subset, whose results and count pass
// through without re-pagination, all tagged source=club.
func TestAggregateClubFilterScenario(t *testing.T) {
	const clubID = "550e8400-e29b-41d4-a716-446655440000"
	var all []map[string]any
	for i := 0; i < 5; i++ {
		e := event(string(rune('a'+i)), "2024-01-02", 1, 0, 0)
		e["clubs"] = []any{map[string]any{"id": clubID}}
		all = append(all, e)
	}
	// Three more events that do not belong to the club subset at all.
	all = append(all,
		event("x1", "2024-01-03", 0, 1, 0),
		event("x2", "2024-01-04", 0, 0, 1),
		event("x3", "2024-01-05", 0, 0, 0),
	)

	var calls []url.Values
	ts := fakeCMS(t, all, &calls)
	defer ts.Close()

	agg := NewAggregator(upstream.New(ts.URL, nil, nil), eventsSpec, nil, nil)
	list := agg.Aggregate(context.Background(), url.Values{
		"type": {"club"}, "club": {clubID}, "limit": {"5"}, "page": {"1"},
	})

	if len(calls) != 1 {
		t.Fatalf("upstream called %d times, want 1 (campus subset must be skipped)", len(calls))
	}
	if got := calls[0].Get("club"); got != clubID {
		t.Errorf("upstream club filter = %q, want %q", got, clubID)
	}
	if len(list.Results) != 5 || list.Count != 5 {
		t.Fatalf("results = %d, count = %d, want 5 and 5", len(list.Results), list.Count)
	}
	for i, it := range list.Results {
		if got := it.(map[string]any)["source"]; got != "club" {
			t.Errorf("results[%d].source = %v, want club", i, got)
		}
	}
}

// TestAggregateUnionFilterSkipsClubSubset verifies a union filter narrows the
// request to the campus subset.
func TestAggregateUnionFilterSkipsClubSubset(t *testing.T) {
	var calls []url.Values
	ts := fakeCMS(t, []map[string]any{event("c1", "2024-01-01", 0, 0, 1)}, &calls)
	defer ts.Close()

	agg := NewAggregator(upstream.New(ts.URL, nil, nil), eventsSpec, nil, nil)
	list := agg.Aggregate(context.Background(), url.Values{"union": {"u-1"}})

	if len(calls) != 1 {
		t.Fatalf("upstream called %d times, want 1", len(calls))
	}
	if got := calls[0].Get("union"); got != "u-1" {
		t.Errorf("upstream union filter = %q, want u-1", got)
	}
	if len(list.Results) != 1 || list.Results[0].(map[string]any)["source"] != "campus" {
		t.Errorf("unexpected campus subset results: %+v", list.Results)
	}
}

// TestAggregatePartialFailure verifies one subset's failure does not abort the
// other: the failed subset contributes an empty array.
func TestAggregatePartialFailure(t *testing.T) {
	var failed atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First request fails hard, second succeeds. Which subset loses
		// is nondeterministic; either way the merge must survive.
		if failed.CompareAndSwap(false, true) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []any{event("ok", "2024-01-01", 1, 1, 0)},
			"count":   1, "next": nil, "previous": nil,
		})
	}))
	defer ts.Close()

	agg := NewAggregator(upstream.New(ts.URL, nil, nil), eventsSpec, nil, nil)
	list := agg.Aggregate(context.Background(), url.Values{"type": {"all"}})

	if list.Results == nil {
		t.Fatal("results is nil, want array")
	}
	if len(list.Results) > 1 {
		t.Errorf("results = %d, want at most 1", len(list.Results))
	}
}

// TestAggregateUnknownTypeYieldsEmpty verifies an unrecognized type value
// fetches nothing and returns the empty canonical state.
func TestAggregateUnknownTypeYieldsEmpty(t *testing.T) {
	var calls []url.Values
	ts := fakeCMS(t, nil, &calls)
	defer ts.Close()

	agg := NewAggregator(upstream.New(ts.URL, nil, nil), eventsSpec, nil, nil)
	list := agg.Aggregate(context.Background(), url.Values{"type": {"sports"}})

	if len(calls) != 0 {
		t.Errorf("upstream called %d times, want 0", len(calls))
	}
	if list.Results == nil || len(list.Results) != 0 || list.Count != 0 {
		t.Errorf("list = %+v, want empty canonical state", list)
	}
}
