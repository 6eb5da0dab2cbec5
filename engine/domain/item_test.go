package domain

import (
	"testing"
	"time"
)

func TestNewRunResultCoversEveryCategory(t *testing.T) {
	cats := []Category{"A", "B", "C"}
	res := NewRunResult("2025-03-01", cats)

	if len(res.Categories) != 3 {
		t.Fatalf("got %d categories, want 3", len(res.Categories))
	}
	for _, c := range cats {
		if res.Categories[c].Status != StatusNotSelected {
			t.Fatalf("%s status = %s, want not_selected", c, res.Categories[c].Status)
		}
	}
}

func TestRunResultTotalsAndCoverage(t *testing.T) {
	res := NewRunResult("2025-03-01", []Category{"A", "B", "C"})
	res.Selected = []Category{"A", "B"}
	res.SetCategory("A", StatusFetched, []HarvestItem{{ExternalID: "1"}, {ExternalID: "2"}})
	res.SetCategory("B", StatusEmpty, nil)

	if got := res.TotalItems(); got != 2 {
		t.Fatalf("TotalItems = %d, want 2", got)
	}
	covered := res.Covered()
	if len(covered) != 1 || covered[0] != "A" {
		t.Fatalf("Covered = %v, want [A]", covered)
	}
}

func TestDateKeys(t *testing.T) {
	ts := time.Date(2025, 3, 7, 23, 59, 0, 0, time.UTC)
	if got := DateKey(ts); got != "2025-03-07" {
		t.Fatalf("DateKey = %s", got)
	}
	if got := MonthKey(ts); got != "2025-03" {
		t.Fatalf("MonthKey = %s", got)
	}
}

func TestPostURL(t *testing.T) {
	if got := PostURL("alice", "123"); got != "https://twitter.com/alice/status/123" {
		t.Fatalf("PostURL = %s", got)
	}
	if got := PostURL("", "123"); got != "https://twitter.com/unknown/status/123" {
		t.Fatalf("PostURL fallback = %s", got)
	}
}
