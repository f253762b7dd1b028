// Package events provides tests for event classification and date ordering.
package events

import "testing"

// refs builds a reference array of n entries.
func refs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = map[string]any{"id": "r"}
	}
	return out
}

// TestClassifyPartition covers every combination of {hasClub, hasDepartment,
// hasUnion}: department/union linkage wins regardless of club links; pure club
// linkage classifies as club; unlinked events belong to neither subset.
func TestClassifyPartition(t *testing.T) {
	cases := []struct {
		clubs, depts, unions int
		want                 Source
		ok                   bool
	}{
		{0, 0, 0, "", false},
		{1, 0, 0, SourceClub, true},
		{0, 1, 0, SourceCampus, true},
		{0, 0, 1, SourceCampus, true},
		{1, 1, 0, SourceCampus, true}, // tie-break: department wins
		{1, 0, 1, SourceCampus, true}, // tie-break: union wins
		{0, 1, 1, SourceCampus, true},
		{2, 3, 1, SourceCampus, true},
	}
	for _, c := range cases {
		item := map[string]any{
			"clubs":       refs(c.clubs),
			"departments": refs(c.depts),
			"unions":      refs(c.unions),
		}
		got, ok := Classify(item)
		if got != c.want || ok != c.ok {
			t.Errorf("Classify(clubs=%d depts=%d unions=%d) = (%q, %v), want (%q, %v)",
				c.clubs, c.depts, c.unions, got, ok, c.want, c.ok)
		}
	}
}

// TestClassifyToleratesMissingFields verifies absent or malformed reference
// arrays count as zero references.
func TestClassifyToleratesMissingFields(t *testing.T) {
	if _, ok := Classify(map[string]any{}); ok {
		t.Error("event with no reference arrays classified into a subset")
	}
	if src, ok := Classify(map[string]any{"clubs": "oops", "unions": refs(1)}); !ok || src != SourceCampus {
		t.Errorf("Classify with malformed clubs field = (%q, %v)", src, ok)
	}
}

// TestSortByDateDesc verifies strict descending order with start_date
// preferred over date, and undated items sorting last.
func TestSortByDateDesc(t *testing.T) {
	items := []any{
		map[string]any{"id": "b", "start_date": "2024-01-01"},
		map[string]any{"id": "undated"},
		map[string]any{"id": "a", "start_date": "2024-03-01"},
		map[string]any{"id": "d", "date": "2024-02-01"}, // fallback field
		map[string]any{"id": "c", "start_date": "2024-04-01T10:00:00Z"},
	}
	SortByDateDesc(items)
	var order []string
	for _, it := range items {
		order = append(order, it.(map[string]any)["id"].(string))
	}
	want := []string{"c", "a", "d", "b", "undated"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}
