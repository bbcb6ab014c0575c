package metrics

import (
	"fmt"
	"time"

	"devops-pulse/internal/normalize"
)

func weekLabel(year, week int) string {
	return fmt.Sprintf("%d-W%d", year, week)
}

// VelocityTrend buckets completed items by the ISO calendar week of their
// closed timestamp. With a full sprint window one bucket is emitted per week
// from start to finish inclusive, so weeks with zero completions still
// appear; otherwise the trailing 7 calendar weeks ending at the current week
// are emitted.
func VelocityTrend(items []normalize.WorkItem, sprint normalize.Sprint, now time.Time) []TrendBucket {
	counts := make(map[string]int)
	for _, item := range items {
		if !item.Completed() {
			continue
		}
		closed, ok := normalize.ParseTime(item.ClosedDate)
		if !ok {
			continue
		}
		year, week := closed.ISOWeek()
		counts[weekLabel(year, week)]++
	}

	var trend []TrendBucket
	start, okStart := normalize.ParseTime(sprint.StartDate)
	finish, okFinish := normalize.ParseTime(sprint.FinishDate)

	if okStart && okFinish {
		for cursor := start; !cursor.After(finish); cursor = cursor.AddDate(0, 0, 7) {
			year, week := cursor.ISOWeek()
			label := weekLabel(year, week)
			trend = append(trend, TrendBucket{Week: label, Completed: counts[label]})
		}
		return trend
	}

	for i := 6; i >= 0; i-- {
		year, week := now.AddDate(0, 0, -7*i).ISOWeek()
		label := weekLabel(year, week)
		trend = append(trend, TrendBucket{Week: label, Completed: counts[label]})
	}
	return trend
}

// Burndown computes the remaining-vs-ideal effort curve across the days of
// the sprint. Only computable when the sprint has both start and finish
// dates; returns nil otherwise.
func Burndown(items []normalize.WorkItem, sprint normalize.Sprint) []BurndownPoint {
	start, okStart := normalize.ParseTime(sprint.StartDate)
	finish, okFinish := normalize.ParseTime(sprint.FinishDate)
	if !okStart || !okFinish {
		return nil
	}

	days := int(finish.Sub(start).Hours() / 24)
	if days < 0 {
		days = 0
	}

	var totalEffort float64
	for _, item := range items {
		totalEffort += item.Effort
	}

	points := make([]BurndownPoint, 0, days+1)
	for i := 0; i <= days; i++ {
		cutoff := start.AddDate(0, 0, i)

		var burned float64
		for _, item := range items {
			if !item.Completed() {
				continue
			}
			closed, ok := normalize.ParseTime(item.ClosedDate)
			if ok && !closed.After(cutoff) {
				burned += item.Effort
			}
		}

		remaining := totalEffort - burned
		if remaining < 0 {
			remaining = 0
		}

		ideal := 0.0
		if days > 0 {
			ideal = totalEffort * (1 - float64(i)/float64(days))
		}

		points = append(points, BurndownPoint{
			Day:       fmt.Sprintf("Day %d", i+1),
			Remaining: remaining,
			Ideal:     round1(ideal),
		})
	}
	return points
}
