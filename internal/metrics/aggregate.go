package metrics

import (
	"math"

	"devops-pulse/internal/normalize"
)

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Progress returns the completed share of the item set as a percentage,
// rounded to one decimal. 0 for an empty set.
func Progress(items []normalize.WorkItem) float64 {
	if len(items) == 0 {
		return 0
	}
	completed := 0
	for _, item := range items {
		if item.Completed() {
			completed++
		}
	}
	return round1(100 * float64(completed) / float64(len(items)))
}

// Velocity sums effort over completed items only, rounded to one decimal.
func Velocity(items []normalize.WorkItem) float64 {
	var total float64
	for _, item := range items {
		if item.Completed() {
			total += item.Effort
		}
	}
	return round1(total)
}

// CompletedCount counts items in a completed state.
func CompletedCount(items []normalize.WorkItem) int {
	n := 0
	for _, item := range items {
		if item.Completed() {
			n++
		}
	}
	return n
}

// Capacity groups all items (not only completed) by resolved assignee,
// summing effort against the fixed per-member capacity. Members appear in
// first-seen order.
func Capacity(items []normalize.WorkItem) []MemberCapacity {
	index := make(map[string]int)
	var members []MemberCapacity

	for _, item := range items {
		i, ok := index[item.Assignee]
		if !ok {
			i = len(members)
			index[item.Assignee] = i
			members = append(members, MemberCapacity{
				Member:   item.Assignee,
				Capacity: memberCapacityUnits,
			})
		}
		members[i].Allocated += item.Effort
	}
	return members
}

// AvgResolutionHours averages (end - start) in hours over completed pull
// requests and completed work items that carry both timestamps. Unparsable
// timestamps are excluded. 0 when nothing qualifies.
func AvgResolutionHours(prs []normalize.PullRequest, items []normalize.WorkItem) float64 {
	var durations []float64

	for _, pr := range prs {
		if !pr.Completed() {
			continue
		}
		if h, ok := hoursBetween(pr.CreationDate, pr.ClosedDate); ok {
			durations = append(durations, h)
		}
	}
	for _, item := range items {
		if !item.Completed() {
			continue
		}
		if h, ok := hoursBetween(item.CreatedDate, item.ClosedDate); ok {
			durations = append(durations, h)
		}
	}

	if len(durations) == 0 {
		return 0
	}
	var sum float64
	for _, h := range durations {
		sum += h
	}
	return round1(sum / float64(len(durations)))
}

func hoursBetween(from, to string) (float64, bool) {
	start, okStart := normalize.ParseTime(from)
	end, okEnd := normalize.ParseTime(to)
	if !okStart || !okEnd {
		return 0, false
	}
	return end.Sub(start).Hours(), true
}
