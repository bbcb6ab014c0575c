package insights

import (
	"context"
	"fmt"

	"devops-pulse/internal/metrics"
	"devops-pulse/internal/normalize"

	"golang.org/x/sync/errgroup"
)

// Dashboard assembles the full dashboard summary: current sprint, open pull
// requests, completed items, resolution time, weekly velocity trend, and the
// activity feed. The independent fetches run concurrently.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	var (
		team    string
		nodes   []map[string]any
		prs     []normalize.PullRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		team, err = s.resolveTeam(gctx)
		return err
	})
	g.Go(func() (err error) {
		nodes, err = s.iterations(gctx)
		return err
	})
	g.Go(func() (err error) {
		prs, err = s.openPullRequests(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	current := s.currentSprint(nodes)
	activeSprints := 0
	if current != nil {
		activeSprints = 1
	}

	completed, err := s.completedBacklogItems(ctx, team, current)
	if err != nil {
		return nil, err
	}

	var trendSprint normalize.Sprint
	if current != nil {
		trendSprint = *current
	}

	sprintName := "N/A"
	if current != nil {
		sprintName = current.Name
	}

	return &DashboardSummary{
		Welcome: Welcome{
			User: "Alex Johnson",
			Role: "Sr. DevOps Engineer",
			Message: fmt.Sprintf("The sprint planning for '%s' is looking solid. You have %d code reviews pending and the system health is optimal.",
				sprintName, len(prs)),
		},
		Stats: Stats{
			ActiveSprints:  activeSprints,
			OpenPRs:        len(prs),
			CompletedItems: len(completed),
			AvgResolution:  metrics.AvgResolutionHours(prs, completed),
			VelocityTrend:  metrics.VelocityTrend(completed, trendSprint, s.now()),
		},
		ActivityFeed: metrics.ActivityFeed(prs, completed, current),
	}, nil
}
