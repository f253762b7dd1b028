// internal/events/aggregate.go
package events

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"
	"sync"

	"github.com/campuskit/campus-proxy-go/internal/canonical"
	"github.com/campuskit/campus-proxy-go/internal/metrics"
	"github.com/campuskit/campus-proxy-go/internal/query"
	"github.com/campuskit/campus-proxy-go/internal/upstream"
)

// mergeWindow is the per-subset fetch size used when both subsets are merged
// and re-paginated client-side. The merged count is only as complete as this
// window: a best-effort approximation, not a guaranteed-complete upstream
// scan. Known limitation inherited from the contract.
const mergeWindow = 100

// Aggregator composes campus and club event fetches into one paginated view.
type Aggregator struct {
	up      *upstream.Client
	spec    query.ResourceSpec
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewAggregator creates an Aggregator over the given events resource spec.
func NewAggregator(up *upstream.Client, spec query.ResourceSpec, log *slog.Logger, m *metrics.Metrics) *Aggregator {
	if log == nil {
		log = slog.Default()
	}
	return &Aggregator{up: up, spec: spec, log: log, metrics: m}
}

// Aggregate serves GET /api/events. Inputs: type in {all, campus, club}
// (default all), optional club and union UUID filters, plus the shared
// pagination/search/eventType parameters.
//
// Subset selection: an explicit club filter narrows the request to the club
// subset only; an explicit union filter narrows it to the campus subset only;
// otherwise type decides. Each subset is fetched concurrently, post-filtered
// through Classify (the upstream resource does not cleanly separate the two
// kinds) and tagged with its source. When both subsets were fetched, results
// are merged, sorted descending by date and re-paginated in memory. A single
// subset passes through with its upstream pagination intact. A failed subset
// contributes an empty array and never aborts its sibling.
func (a *Aggregator) Aggregate(ctx context.Context, in url.Values) canonical.List {
	typ := in.Get("type")
	if typ == "" {
		typ = "all"
	}
	club := in.Get("club")
	union := in.Get("union")

	var wantCampus, wantClub bool
	switch {
	case club != "":
		wantClub = true
	case union != "":
		wantCampus = true
	default:
		wantCampus = typ == "all" || typ == "campus"
		wantClub = typ == "all" || typ == "club"
	}
	merged := wantCampus && wantClub

	common := query.Translate(in, a.spec)

	var wg sync.WaitGroup
	var campusList, clubList subsetResult
	if wantCampus {
		q := cloneValues(common)
		if union != "" {
			q.Set("union", union)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			campusList = a.fetchSubset(ctx, SourceCampus, q, merged)
		}()
	}
	if wantClub {
		q := cloneValues(common)
		if club != "" {
			q.Set("club", club)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			clubList = a.fetchSubset(ctx, SourceClub, q, merged)
		}()
	}
	wg.Wait()

	if merged {
		all := append(campusList.items, clubList.items...)
		SortByDateDesc(all)
		page := query.Page(in)
		limit := query.Limit(in, a.spec)
		return canonical.List{
			Results: slicePage(all, page, limit),
			Count:   len(all),
		}
	}

	single := campusList
	if wantClub {
		single = clubList
	}
	if single.items == nil {
		single.items = []any{}
	}
	return canonical.List{
		Results:  single.items,
		Count:    single.count,
		Next:     single.next,
		Previous: single.previous,
	}
}

// subsetResult carries one subset's filtered items plus the upstream
// pagination fields used for single-subset pass-through.
type subsetResult struct {
	items    []any
	count    int
	next     any
	previous any
}

// fetchSubset fetches one subset window, post-filters it through Classify and
// tags retained items. Failures degrade to an empty contribution.
func (a *Aggregator) fetchSubset(ctx context.Context, want Source, q url.Values, merged bool) subsetResult {
	if merged {
		// Both subsets feed one client-side re-pagination; fetch a
		// generous window from offset zero instead of the translated page.
		q.Set("offset", "0")
		q.Set("limit", strconv.Itoa(mergeWindow))
	}

	list, err := a.up.FetchList(ctx, a.spec.Name, a.spec.Path, q, a.spec.CacheTTL)
	if err != nil {
		a.log.Error("event subset fetch failed",
			"resource", a.spec.Name, "subset", string(want), "error", err)
		if a.metrics != nil {
			a.metrics.EmptyFallbackTotal.WithLabelValues(a.spec.Name, "subset").Inc()
		}
		return subsetResult{items: []any{}}
	}

	kept := make([]any, 0, len(list.Results))
	for _, it := range list.Results {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		if src, ok := Classify(m); ok && src == want {
			m["source"] = string(src)
			kept = append(kept, m)
		}
	}

	// The upstream count includes records the post-filter dropped from this
	// window; adjust so single-subset responses stay consistent with their
	// visible results.
	count := list.Count - (len(list.Results) - len(kept))
	if count < len(kept) {
		count = len(kept)
	}
	return subsetResult{items: kept, count: count, next: list.Next, previous: list.Previous}
}

// slicePage applies in-memory pagination to the merged set.
func slicePage(items []any, page, limit int) []any {
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start >= len(items) {
		return []any{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// cloneValues copies url.Values so concurrent subset fetches never share one map.
func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
