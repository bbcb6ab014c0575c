// Package metrics derives dashboard metrics from normalized sprint,
// work-item, and pull-request data. All computations are pure; missing or
// malformed upstream data degrades to the zero/empty baseline instead of
// failing.
package metrics

// TrendBucket is one calendar week of completed-item throughput.
type TrendBucket struct {
	Week      string `json:"week"` // "{year}-W{week}"
	Completed int    `json:"completed"`
}

// BurndownPoint is one day of the remaining-vs-ideal effort curve.
type BurndownPoint struct {
	Day       string  `json:"day"`
	Remaining float64 `json:"remaining"`
	Ideal     float64 `json:"ideal"`
}

// MemberCapacity is the per-assignee allocation against the fixed sprint
// capacity.
type MemberCapacity struct {
	Member    string  `json:"member"`
	Allocated float64 `json:"allocated"`
	Capacity  float64 `json:"capacity"`
}

// ActivityEvent is one entry of the time-ordered activity feed. Ephemeral;
// generated per dashboard request.
type ActivityEvent struct {
	Type      string `json:"type"` // pr, workitem, sprint
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

// memberCapacityUnits is the assumed capacity per member, independent of
// actual allocation or working days.
const memberCapacityUnits = 40.0
