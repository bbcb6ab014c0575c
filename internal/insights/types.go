package insights

import (
	"fmt"

	"devops-pulse/internal/metrics"
)

// NotFoundError reports an identity-resolution failure: a referenced sprint
// or team could not be resolved. Unlike malformed upstream data, which
// degrades metrics to their zero baseline, this is fatal to the request.
type NotFoundError struct {
	Kind string
	Ref  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Ref)
}

// Welcome is the greeting block of the dashboard summary.
type Welcome struct {
	User    string `json:"user"`
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Stats is the headline metrics block of the dashboard summary.
type Stats struct {
	ActiveSprints  int                   `json:"activeSprints"`
	OpenPRs        int                   `json:"openPRs"`
	CompletedItems int                   `json:"completedItems"`
	AvgResolution  float64               `json:"avgResolution"`
	VelocityTrend  []metrics.TrendBucket `json:"velocityTrend"`
}

// DashboardSummary is the full dashboard payload.
type DashboardSummary struct {
	Welcome      Welcome                 `json:"welcome"`
	Stats        Stats                   `json:"stats"`
	ActivityFeed []metrics.ActivityEvent `json:"activityFeed"`
}

// SprintSummary is one entry of the sprint listing.
type SprintSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"` // past, current, future
}

// SprintInsights is the per-sprint metrics payload.
type SprintInsights struct {
	Velocity       float64                  `json:"velocity"`
	Capacity       float64                  `json:"capacity"`
	Progress       float64                  `json:"progress"`
	CompletedItems int                      `json:"completedItems"`
	TotalItems     int                      `json:"totalItems"`
	BurndownData   []metrics.BurndownPoint  `json:"burndownData"`
	MemberCapacity []metrics.MemberCapacity `json:"memberCapacity"`
}
