// internal/events/events.go
// Package events presents a unified view over the campus-origin and
// club-origin subsets of the upstream global events resource. The two kinds
// live in one upstream collection and are distinguished only by which
// reference arrays (clubs, departments, unions) are populated on each record.
package events

import (
	"sort"
	"time"
)

// Source tags an event with its provenance.
type Source string

const (
	SourceCampus Source = "campus"
	SourceClub   Source = "club"
)

// Classify decides which subset an event record belongs to. This is the single
// classification rule shared by the aggregator and the detail resolver:
//
//   - at least one department or union reference -> campus, regardless of any
//     club references (department/union linkage takes precedence)
//   - at least one club reference and no department/union references -> club
//   - no references at all -> neither subset (ok is false)
func Classify(item map[string]any) (Source, bool) {
	depts := refCount(item, "departments")
	unions := refCount(item, "unions")
	clubs := refCount(item, "clubs")
	switch {
	case depts > 0 || unions > 0:
		return SourceCampus, true
	case clubs > 0:
		return SourceClub, true
	default:
		return "", false
	}
}

// refCount counts the entries of a reference array field. Absent or
// non-array values count as zero.
func refCount(item map[string]any, key string) int {
	if a, ok := item[key].([]any); ok {
		return len(a)
	}
	return 0
}

// Date layouts the upstream emits for event dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// eventTime extracts the sortable time of an event: start_date, falling back
// to the generic date field when start_date is absent or unparsable.
func eventTime(item map[string]any) (time.Time, bool) {
	for _, field := range []string{"start_date", "date"} {
		raw, ok := item[field].(string)
		if !ok || raw == "" {
			continue
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// SortByDateDesc orders merged event items descending by start date. Items
// without a parsable date sort after dated ones; the sort is stable so
// relative upstream order is preserved among them.
func SortByDateDesc(items []any) {
	sort.SliceStable(items, func(i, j int) bool {
		mi, iok := items[i].(map[string]any)
		mj, jok := items[j].(map[string]any)
		if !iok || !jok {
			return iok && !jok
		}
		ti, iok := eventTime(mi)
		tj, jok := eventTime(mj)
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
}
