package insights

import (
	"context"

	"devops-pulse/internal/metrics"
	"devops-pulse/internal/normalize"
)

// ListSprints returns every iteration of the project, flattened, with its
// time-frame classification.
func (s *Service) ListSprints(ctx context.Context) ([]SprintSummary, error) {
	nodes, err := s.iterations(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var sprints []SprintSummary
	for _, node := range normalize.FlattenTree(nodes) {
		sprint := normalize.AsSprint(node)
		sprints = append(sprints, SprintSummary{
			ID:        sprint.ID,
			Name:      sprint.Name,
			StartDate: sprint.StartDate,
			EndDate:   sprint.FinishDate,
			Status:    sprint.Status(now),
		})
	}
	return sprints, nil
}

// Insights computes the per-sprint metrics for the sprint matching
// reference, which may be an id, identifier, path, or name.
func (s *Service) Insights(ctx context.Context, reference string) (*SprintInsights, error) {
	nodes, err := s.iterations(ctx)
	if err != nil {
		return nil, err
	}

	node, ok := normalize.ResolveIteration(nodes, reference)
	if !ok {
		return nil, &NotFoundError{Kind: "sprint", Ref: reference}
	}
	sprint := normalize.AsSprint(node)

	team, err := s.resolveTeam(ctx)
	if err != nil {
		return nil, err
	}

	items, err := s.sprintWorkItems(ctx, team, sprint)
	if err != nil {
		return nil, err
	}

	members := metrics.Capacity(items)
	var capacity float64
	for _, m := range members {
		capacity += m.Capacity
	}

	return &SprintInsights{
		Velocity:       metrics.Velocity(items),
		Capacity:       capacity,
		Progress:       metrics.Progress(items),
		CompletedItems: metrics.CompletedCount(items),
		TotalItems:     len(items),
		BurndownData:   metrics.Burndown(items, sprint),
		MemberCapacity: members,
	}, nil
}
