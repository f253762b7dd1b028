// internal/server/resources.go
package server

import (
	"time"

	"github.com/campuskit/campus-proxy-go/internal/query"
)

// Resource freshness windows. Gallery changes often, so its window is shorter.
const (
	defaultTTL = 300 * time.Second
	galleryTTL = 120 * time.Second
)

// Resources declares every proxied upstream collection: its default page
// size, its freshness window and the filters clients are allowed to forward.
// Anything not listed in a resource's filter allow-list is dropped before the
// upstream call.
var Resources = []query.ResourceSpec{
	{
		Name:         "notices",
		Path:         "/notices/",
		DefaultLimit: 10,
		CacheTTL:     defaultTTL,
		Filters: []query.Filter{
			{Param: "type"},
			{Param: "department"},
		},
	},
	{
		Name:         "departments",
		Path:         "/departments/",
		DefaultLimit: 20,
		CacheTTL:     defaultTTL,
	},
	{
		Name:         "clubs",
		Path:         "/clubs/",
		DefaultLimit: 20,
		CacheTTL:     defaultTTL,
		Filters: []query.Filter{
			{Param: "union"},
		},
	},
	{
		Name:         "unions",
		Path:         "/unions/",
		DefaultLimit: 20,
		CacheTTL:     defaultTTL,
	},
	{
		Name:         "gallery",
		Path:         "/gallery/",
		DefaultLimit: 20,
		CacheTTL:     galleryTTL,
	},
	{
		Name:         "research",
		Path:         "/research/",
		DefaultLimit: 10,
		CacheTTL:     defaultTTL,
		Filters: []query.Filter{
			{Param: "reportType", Upstream: "report_type"},
			{Param: "department"},
		},
	},
	{
		// Admission programs: the upstream enumerates program types in
		// uppercase, so the filter value is upper-cased before forwarding.
		Name:         "programs",
		Path:         "/programs/",
		DefaultLimit: 10,
		CacheTTL:     defaultTTL,
		Filters: []query.Filter{
			{Param: "programType", Upstream: "program_type", Uppercase: true},
			{Param: "level"},
		},
	},
}

// EventsSpec is the global events resource consumed by the aggregator and the
// event detail endpoint. The club and union filters are appended per subset
// call by the aggregator, not translated globally.
var EventsSpec = query.ResourceSpec{
	Name:         "events",
	Path:         "/events/",
	DefaultLimit: 10,
	CacheTTL:     defaultTTL,
	Filters: []query.Filter{
		{Param: "eventType", Upstream: "event_type"},
	},
}

// detailResources lists the resources exposing /api/<resource>/{id} lookups
// through the UUID-or-slug resolver.
var detailResources = map[string]bool{
	"departments": true,
	"clubs":       true,
	"unions":      true,
}
