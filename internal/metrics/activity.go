package metrics

import (
	"fmt"
	"sort"

	"devops-pulse/internal/normalize"
)

const (
	activityPerSource = 5
	activityCap       = 7
)

// ActivityFeed merges the most recent pull requests and completed work items
// into a time-ordered feed. Up to 5 of each are taken in source order, the
// merged set is sorted by timestamp descending (empty timestamps sort
// oldest) and truncated to 7. When a current sprint is resolved a synthetic
// sprint-started event is appended after truncation, exempt from the cap.
func ActivityFeed(prs []normalize.PullRequest, items []normalize.WorkItem, current *normalize.Sprint) []ActivityEvent {
	var feed []ActivityEvent

	for i, pr := range prs {
		if i >= activityPerSource {
			break
		}
		feed = append(feed, ActivityEvent{
			Type:      "pr",
			Title:     fmt.Sprintf("PR #%v %s", pr.ID, pr.Status),
			Timestamp: pr.CreationDate,
		})
	}

	taken := 0
	for _, item := range items {
		if !item.Completed() {
			continue
		}
		feed = append(feed, ActivityEvent{
			Type:      "workitem",
			Title:     fmt.Sprintf("Work Item #%v Closed", item.ID),
			Timestamp: item.ClosedDate,
		})
		taken++
		if taken >= activityPerSource {
			break
		}
	}

	// ISO-8601 strings order correctly under lexicographic comparison; the
	// empty string naturally sorts as oldest.
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].Timestamp > feed[j].Timestamp
	})
	if len(feed) > activityCap {
		feed = feed[:activityCap]
	}

	if current != nil {
		feed = append(feed, ActivityEvent{
			Type:      "sprint",
			Title:     fmt.Sprintf("Sprint '%s' started", current.Name),
			Timestamp: current.StartDate,
		})
	}
	return feed
}
