package metrics

import (
	"testing"
	"time"

	"devops-pulse/internal/normalize"
)

func TestVelocityTrend_SprintWindow(t *testing.T) {
	sprint := normalize.Sprint{
		StartDate:  "2025-03-03T00:00:00Z", // Monday, ISO week 10
		FinishDate: "2025-03-14T00:00:00Z", // ISO week 11
	}
	items := []normalize.WorkItem{
		{State: "Closed", ClosedDate: "2025-03-04T12:00:00Z"}, // week 10
		{State: "Closed", ClosedDate: "2025-03-05T12:00:00Z"}, // week 10
		{State: "Closed", ClosedDate: "2025-03-12T12:00:00Z"}, // week 11
		{State: "Active", ClosedDate: "2025-03-12T12:00:00Z"}, // not completed
	}

	trend := VelocityTrend(items, sprint, time.Now())
	if len(trend) != 2 {
		t.Fatalf("expected 2 buckets, got %d: %v", len(trend), trend)
	}
	if trend[0].Week != "2025-W10" || trend[0].Completed != 2 {
		t.Errorf("bucket 0 = %+v", trend[0])
	}
	if trend[1].Week != "2025-W11" || trend[1].Completed != 1 {
		t.Errorf("bucket 1 = %+v", trend[1])
	}
}

func TestVelocityTrend_EmptyWindowStillEmitsBuckets(t *testing.T) {
	sprint := normalize.Sprint{
		StartDate:  "2025-03-03T00:00:00Z",
		FinishDate: "2025-03-14T00:00:00Z",
	}

	trend := VelocityTrend(nil, sprint, time.Now())
	if len(trend) != 2 {
		t.Fatalf("expected 2 buckets for a 2-week window, got %d", len(trend))
	}
	for _, b := range trend {
		if b.Completed != 0 {
			t.Errorf("bucket %s = %d, want 0", b.Week, b.Completed)
		}
	}
}

func TestVelocityTrend_TrailingWeeks(t *testing.T) {
	now := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC) // ISO week 11
	items := []normalize.WorkItem{
		{State: "Closed", ClosedDate: "2025-03-11T00:00:00Z"}, // week 11
		{State: "Closed", ClosedDate: "not-a-date"},           // silently excluded
	}

	trend := VelocityTrend(items, normalize.Sprint{}, now)
	if len(trend) != 7 {
		t.Fatalf("expected 7 trailing buckets, got %d", len(trend))
	}
	if trend[6].Week != "2025-W11" || trend[6].Completed != 1 {
		t.Errorf("last bucket = %+v", trend[6])
	}
	if trend[0].Week != "2025-W5" {
		t.Errorf("first bucket = %+v, want 2025-W5", trend[0])
	}
}

func TestBurndown_Identities(t *testing.T) {
	sprint := normalize.Sprint{
		StartDate:  "2025-03-03T00:00:00Z",
		FinishDate: "2025-03-13T00:00:00Z", // 10 days
	}
	items := []normalize.WorkItem{
		{State: "Closed", Effort: 5, ClosedDate: "2025-03-05T00:00:00Z"},
		{State: "Active", Effort: 15},
	}

	points := Burndown(items, sprint)
	if len(points) != 11 {
		t.Fatalf("expected 11 points, got %d", len(points))
	}

	// Ideal at day 0 equals total effort; ideal at the final day equals 0.
	if points[0].Ideal != 20 {
		t.Errorf("ideal at day 0 = %v, want 20", points[0].Ideal)
	}
	if points[10].Ideal != 0 {
		t.Errorf("ideal at final day = %v, want 0", points[10].Ideal)
	}

	if points[0].Day != "Day 1" || points[10].Day != "Day 11" {
		t.Errorf("day labels wrong: %s .. %s", points[0].Day, points[10].Day)
	}

	// Remaining drops by the completed effort once its closed date passes.
	if points[0].Remaining != 20 {
		t.Errorf("remaining at day 0 = %v, want 20", points[0].Remaining)
	}
	if points[2].Remaining != 15 {
		t.Errorf("remaining at day 2 = %v, want 15", points[2].Remaining)
	}
	if points[10].Remaining != 15 {
		t.Errorf("remaining at final day = %v, want 15", points[10].Remaining)
	}
}

func TestBurndown_ZeroDayWindow(t *testing.T) {
	sprint := normalize.Sprint{
		StartDate:  "2025-03-03T00:00:00Z",
		FinishDate: "2025-03-03T00:00:00Z",
	}
	items := []normalize.WorkItem{{State: "Active", Effort: 8}}

	points := Burndown(items, sprint)
	if len(points) != 1 {
		t.Fatalf("expected a single point, got %d", len(points))
	}
	if points[0].Ideal != 0 {
		t.Errorf("ideal for zero-day window = %v, want 0", points[0].Ideal)
	}
	if points[0].Remaining != 8 {
		t.Errorf("remaining = %v, want 8", points[0].Remaining)
	}
}

func TestBurndown_MissingDates(t *testing.T) {
	if points := Burndown([]normalize.WorkItem{{State: "Active", Effort: 1}}, normalize.Sprint{}); points != nil {
		t.Errorf("expected nil without sprint dates, got %v", points)
	}
}
