package orders

import (
	"testing"
	"time"
)

func TestSummarizeByDay(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	a := testOrder("1", StatusCompleted, day1)
	a.AmountPence = 1250
	b := testOrder("2", StatusCompleted, day1.Add(2*time.Hour))
	b.AmountPence = 750
	c := testOrder("3", StatusCompleted, day2)
	c.AmountPence = 500

	got := SummarizeByDay([]Order{a, b, c})
	if len(got) != 2 {
		t.Fatalf("days = %d, want 2", len(got))
	}
	// Newest day first.
	if got[0].Date != "2026-03-02" || got[0].OrderCount != 1 || got[0].Revenue != 5.0 {
		t.Fatalf("day[0] = %+v", got[0])
	}
	if got[1].Date != "2026-03-01" || got[1].OrderCount != 2 || got[1].Revenue != 20.0 {
		t.Fatalf("day[1] = %+v", got[1])
	}
}

func TestHistoryExcludesLiveAndSortsNewestFirst(t *testing.T) {
	now := time.Now()
	all := []Order{
		testOrder("live", StatusPending, now.Add(-time.Hour)),
		testOrder("older", StatusCompleted, now.Add(-48*time.Hour)),
		testOrder("recent", StatusCompleted, now.Add(-6*time.Hour)),
	}
	got := History(all, now, 4*time.Hour, 0)
	if len(got) != 2 {
		t.Fatalf("history = %d entries, want 2", len(got))
	}
	if got[0].ID != "recent" || got[1].ID != "older" {
		t.Fatalf("history order = [%s %s], want [recent older]", got[0].ID, got[1].ID)
	}
}

func TestHistoryTimeframe(t *testing.T) {
	now := time.Now()
	all := []Order{
		testOrder("recent", StatusCompleted, now.Add(-6*time.Hour)),
		testOrder("lastweek", StatusCompleted, now.Add(-8*24*time.Hour)),
	}
	got := History(all, now, 4*time.Hour, 24*time.Hour)
	if len(got) != 1 || got[0].ID != "recent" {
		t.Fatalf("history = %v, want only recent", got)
	}
}
