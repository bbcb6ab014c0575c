// Package insights orchestrates tool calls into dashboard metrics: it
// resolves teams and sprints through the registered tool servers, normalizes
// the raw responses, and feeds them to the metrics aggregator.
package insights

import (
	"context"
	"fmt"
	"time"

	"devops-pulse/internal/intent"
	"devops-pulse/internal/normalize"
	"devops-pulse/internal/registry"
)

// Tool names advertised by the Azure DevOps tool server.
const (
	toolListTeams        = "core_list_project_teams"
	toolListIterations   = "work_list_iterations"
	toolListPullRequests = "repo_list_pull_requests_by_repo_or_project"
	toolListBacklogs     = "wit_list_backlogs"
	toolBacklogWorkItems = "wit_list_backlog_work_items"
	toolIterationItems   = "wit_get_work_items_for_iteration"
	toolItemsBatch       = "wit_get_work_items_batch_by_ids"
)

const metadataTTL = 5 * time.Minute

// Service aggregates tool responses into dashboard metrics for one project.
type Service struct {
	reg     *registry.Registry
	project string
	team    string // optional override; first project team otherwise
	cache   *metadataCache
	now     func() time.Time
}

// New creates a Service bound to a project.
func New(reg *registry.Registry, project, team string) *Service {
	return &Service{
		reg:     reg,
		project: project,
		team:    team,
		cache:   newMetadataCache(),
		now:     time.Now,
	}
}

// fetch dispatches a tool call and decodes the raw content.
func (s *Service) fetch(ctx context.Context, tool string, args map[string]any) (any, error) {
	raw, err := s.reg.Dispatch(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	return normalize.Decode(raw), nil
}

// fetchCached is fetch with the metadata cache in front. Only used for
// team/iteration/backlog lookups, which change rarely.
func (s *Service) fetchCached(ctx context.Context, tool string, args map[string]any) (any, error) {
	key := fmt.Sprintf("%s:%v", tool, args)
	if v, ok := s.cache.get(key); ok {
		return v, nil
	}
	v, err := s.fetch(ctx, tool, args)
	if err != nil {
		return nil, err
	}
	s.cache.add(key, v, metadataTTL)
	return v, nil
}

// resolveTeam returns the configured team or the project's first team id.
func (s *Service) resolveTeam(ctx context.Context) (string, error) {
	if s.team != "" {
		return s.team, nil
	}

	decoded, err := s.fetchCached(ctx, toolListTeams, map[string]any{"project": s.project})
	if err != nil {
		return "", err
	}
	teams := normalize.Items(decoded)
	if len(teams) == 0 {
		return "", &NotFoundError{Kind: "team", Ref: s.project}
	}
	return asString(teams[0]["id"]), nil
}

// iterations fetches the full iteration tree for the project.
func (s *Service) iterations(ctx context.Context) ([]map[string]any, error) {
	decoded, err := s.fetchCached(ctx, toolListIterations, map[string]any{"project": s.project})
	if err != nil {
		return nil, err
	}
	return normalize.Items(decoded), nil
}

// currentSprint finds the first iteration positively in flight, walking the
// tree in pre-order. Container nodes without a time frame or dates are
// passed over. Returns nil when no sprint is current.
func (s *Service) currentSprint(nodes []map[string]any) *normalize.Sprint {
	now := s.now()
	for _, node := range normalize.FlattenTree(nodes) {
		sprint := normalize.AsSprint(node)
		if sprint.Current(now) {
			return &sprint
		}
	}
	return nil
}

// sprintWorkItems fetches the detailed work items of one sprint: the
// iteration-membership query yields relation-shaped entries whose ids are
// then resolved through the batch detail query.
func (s *Service) sprintWorkItems(ctx context.Context, team string, sprint normalize.Sprint) ([]normalize.WorkItem, error) {
	iterationID := sprint.Identifier
	if iterationID == "" {
		iterationID = sprint.ID
	}

	membership, err := s.fetch(ctx, toolIterationItems, map[string]any{
		"project":     s.project,
		"team":        team,
		"iterationId": iterationID,
	})
	if err != nil {
		return nil, err
	}

	ids := normalize.ExtractIDs(normalize.Items(membership))
	if len(ids) == 0 {
		return nil, nil
	}

	details, err := s.fetch(ctx, toolItemsBatch, map[string]any{
		"project": s.project,
		"ids":     ids,
	})
	if err != nil {
		return nil, err
	}

	var items []normalize.WorkItem
	for _, m := range normalize.Items(details) {
		items = append(items, normalize.AsWorkItem(m))
	}
	return items, nil
}

// completedBacklogItems fetches the closed work items of the sprint through
// the backlog query, as the dashboard path does.
func (s *Service) completedBacklogItems(ctx context.Context, team string, sprint *normalize.Sprint) ([]normalize.WorkItem, error) {
	if sprint == nil {
		return nil, nil
	}

	decoded, err := s.fetchCached(ctx, toolListBacklogs, map[string]any{"project": s.project, "team": team})
	if err != nil {
		return nil, err
	}
	backlogs := normalize.Items(decoded)
	if len(backlogs) == 0 {
		return nil, nil
	}
	backlogID := asString(backlogs[0]["id"])

	raw, err := s.fetch(ctx, toolBacklogWorkItems, map[string]any{
		"project":   s.project,
		"team":      team,
		"backlogId": backlogID,
		"state":     "Closed",
		"iteration": sprint.Path,
	})
	if err != nil {
		return nil, err
	}

	var items []normalize.WorkItem
	for _, m := range normalize.Items(raw) {
		items = append(items, normalize.AsWorkItem(m))
	}
	return items, nil
}

// openPullRequests fetches the project's active pull requests.
func (s *Service) openPullRequests(ctx context.Context) ([]normalize.PullRequest, error) {
	decoded, err := s.fetch(ctx, toolListPullRequests, map[string]any{
		"project": s.project,
		"status":  "Active",
	})
	if err != nil {
		return nil, err
	}

	var prs []normalize.PullRequest
	for _, m := range normalize.Items(decoded) {
		prs = append(prs, normalize.AsPullRequest(m))
	}
	return prs, nil
}

// HandleInsight classifies the prompts and, when a category matches, runs
// its tool plan. handled is false when no category matched and the caller
// should fall back to the full tool-calling conversation.
func (s *Service) HandleInsight(ctx context.Context, prompts []string) (outcome *intent.Outcome, handled bool, err error) {
	plan, err := intent.Classify(prompts)
	if err != nil {
		return nil, false, err
	}
	if plan == nil {
		return nil, false, nil
	}

	outcome, err = plan.Execute(ctx, s.reg)
	if err != nil {
		return nil, true, err
	}
	return outcome, true, nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
