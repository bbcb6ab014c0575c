package metrics

import (
	"fmt"
	"testing"

	"devops-pulse/internal/normalize"
)

func TestActivityFeed_CapAndSprintEvent(t *testing.T) {
	// 6 PRs and 6 completed work items: 5 of each are merged, the result is
	// capped at 7, then the sprint event is appended as the exempt 8th.
	var prs []normalize.PullRequest
	for i := 0; i < 6; i++ {
		prs = append(prs, normalize.PullRequest{
			ID:           i + 1,
			Status:       "Active",
			CreationDate: fmt.Sprintf("2025-03-%02dT10:00:00Z", i+1),
		})
	}
	var items []normalize.WorkItem
	for i := 0; i < 6; i++ {
		items = append(items, normalize.WorkItem{
			ID:         100 + i,
			State:      "Closed",
			ClosedDate: fmt.Sprintf("2025-03-%02dT12:00:00Z", i+10),
		})
	}

	current := &normalize.Sprint{Name: "Sprint 5", StartDate: "2025-03-01T00:00:00Z"}
	feed := ActivityFeed(prs, items, current)

	if len(feed) != 8 {
		t.Fatalf("expected 8 events (7 capped + sprint), got %d", len(feed))
	}

	last := feed[len(feed)-1]
	if last.Type != "sprint" || last.Title != "Sprint 'Sprint 5' started" {
		t.Errorf("trailing event = %+v, want sprint-started", last)
	}

	// All but the trailing sprint event are ordered by timestamp descending.
	for i := 0; i < 6; i++ {
		if feed[i].Timestamp < feed[i+1].Timestamp {
			t.Errorf("feed not descending at %d: %s < %s", i, feed[i].Timestamp, feed[i+1].Timestamp)
		}
	}
}

func TestActivityFeed_NoSprint(t *testing.T) {
	prs := []normalize.PullRequest{{ID: 1, Status: "Active", CreationDate: "2025-03-01T00:00:00Z"}}
	feed := ActivityFeed(prs, nil, nil)
	if len(feed) != 1 {
		t.Fatalf("expected 1 event, got %d", len(feed))
	}
	if feed[0].Type != "pr" || feed[0].Title != "PR #1 Active" {
		t.Errorf("event = %+v", feed[0])
	}
}

func TestActivityFeed_EmptyTimestampsSortOldest(t *testing.T) {
	items := []normalize.WorkItem{
		{ID: 1, State: "Closed", ClosedDate: ""},
		{ID: 2, State: "Closed", ClosedDate: "2025-03-02T00:00:00Z"},
	}

	feed := ActivityFeed(nil, items, nil)
	if len(feed) != 2 {
		t.Fatalf("expected 2 events, got %d", len(feed))
	}
	if feed[0].Timestamp != "2025-03-02T00:00:00Z" || feed[1].Timestamp != "" {
		t.Errorf("empty timestamp did not sort oldest: %+v", feed)
	}
}

func TestActivityFeed_SkipsIncompleteItems(t *testing.T) {
	items := []normalize.WorkItem{
		{ID: 1, State: "Active", ClosedDate: "2025-03-05T00:00:00Z"},
		{ID: 2, State: "Closed", ClosedDate: "2025-03-02T00:00:00Z"},
	}

	feed := ActivityFeed(nil, items, nil)
	if len(feed) != 1 {
		t.Fatalf("expected only the completed item, got %d events", len(feed))
	}
	if feed[0].Title != "Work Item #2 Closed" {
		t.Errorf("event = %+v", feed[0])
	}
}
