// Package intent classifies free-text requests into supported insight
// categories and produces tool-call plans for them. Categories are evaluated
// in a fixed priority order and the first match wins; requests matching no
// category are left to the full tool-calling conversation.
package intent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// NeedsInputError signals that an intent was recognized but a required
// parameter is missing and must be supplied by the caller rather than
// guessed.
type NeedsInputError struct {
	Field string
}

func (e *NeedsInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Field)
}

// Step is one tool invocation of a plan.
type Step struct {
	Tool string
	Args map[string]any
}

// Plan is an ordered tool-call sequence for a classified request.
type Plan struct {
	Category string
	Steps    []Step
}

// Dispatcher is the subset of the tool registry a plan needs to run.
type Dispatcher interface {
	Has(name string) bool
	Dispatch(ctx context.Context, name string, args map[string]any) (any, error)
}

// Outcome carries the per-tool raw results of an executed plan plus notes
// about steps that were skipped.
type Outcome struct {
	Category string         `json:"category"`
	Results  map[string]any `json:"results"`
	Notes    []string       `json:"notes,omitempty"`
}

type category struct {
	name  string
	match func(lowered string) bool
	build func(lowered, original string) (*Plan, error)
}

// Name extraction runs case-insensitively against the original prompt text
// so captured sprint/project names keep their casing for display and tool
// arguments.
var (
	reSprintInsight = regexp.MustCompile(`(?i)sprint insight(?:.*?\b(?:for|of)\b)?\s*([\w\- ]+)?`)
	reTrailingName  = regexp.MustCompile(`(?i)\b(?:for|of)\b\s+([\w\- ]+)`)
	reProjectStrict = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([\w\-]+)\s*project`)
	reProjectLoose  = regexp.MustCompile(`(?i)\b(?:in|for|at)\s+([\w\-]+)`)
)

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// categories is evaluated in order; the checks are not mutually exclusive by
// content, so the order itself is the priority.
var categories = []category{
	{
		name: "sprint-insight",
		match: func(t string) bool {
			return containsAny(t, "sprint insight", "velocity", "capacity", "work progress")
		},
		build: func(lowered, original string) (*Plan, error) {
			name := ""
			if m := reSprintInsight.FindStringSubmatch(original); m != nil {
				name = strings.TrimSpace(m[1])
			}
			if name == "" {
				if m := reTrailingName.FindStringSubmatch(original); m != nil {
					name = strings.TrimSpace(m[1])
				}
			}
			if name == "" {
				return nil, &NeedsInputError{Field: "sprintName"}
			}
			args := map[string]any{"sprint": name}
			return &Plan{
				Category: "sprint-insight",
				Steps: []Step{
					{Tool: "g-azure-devops-boards_get_sprint_velocity", Args: args},
					{Tool: "g-azure-devops-boards_get_sprint_capacity", Args: args},
					{Tool: "g-azure-devops-boards_get_sprint_progress", Args: args},
				},
			}, nil
		},
	},
	{
		name: "code-review",
		match: func(t string) bool {
			return containsAny(t, "code review", "pull request", "review efficiency")
		},
		build: func(lowered, original string) (*Plan, error) {
			project := ""
			if m := reProjectStrict.FindStringSubmatch(original); m != nil {
				project = m[1]
			} else if m := reProjectLoose.FindStringSubmatch(original); m != nil {
				project = m[1]
			}
			if project == "" {
				return nil, &NeedsInputError{Field: "project"}
			}
			return &Plan{
				Category: "code-review",
				Steps: []Step{
					{Tool: "g-azure-devops-repos_list_pull_requests", Args: map[string]any{"project": project, "status": "all"}},
					{Tool: "g-azure-devops-repos_get_review_stats", Args: map[string]any{"project": project}},
				},
			}, nil
		},
	},
	{
		name: "sprint-planning",
		match: func(t string) bool {
			return containsAny(t, "sprint planning", "planning support", "ai recommend", "scope", "priorit")
		},
		build: func(lowered, original string) (*Plan, error) {
			return &Plan{
				Category: "sprint-planning",
				Steps: []Step{
					{Tool: "g-azure-devops-boards_get_sprint_planning_recommendations", Args: map[string]any{}},
				},
			}, nil
		},
	},
	{
		name: "realtime-metrics",
		match: func(t string) bool {
			return containsAny(t, "real-time metric", "kpi", "performance indicator")
		},
		build: func(lowered, original string) (*Plan, error) {
			return &Plan{
				Category: "realtime-metrics",
				Steps: []Step{
					{Tool: "g-azure-devops-boards_get_realtime_kpis", Args: map[string]any{}},
				},
			}, nil
		},
	},
}

// Classify matches the prompts against the category table. Returns
// (nil, nil) when no category matches, signaling the caller to fall back to
// the full tool-calling conversation.
func Classify(prompts []string) (*Plan, error) {
	original := strings.Join(prompts, " ")
	lowered := strings.ToLower(original)

	for _, c := range categories {
		if !c.match(lowered) {
			continue
		}
		plan, err := c.build(lowered, original)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("category", c.name).Int("steps", len(plan.Steps)).Msg("Classified insight request")
		return plan, nil
	}
	return nil, nil
}

// Execute runs the plan against the registry. Steps whose tool is not
// registered are skipped with a recorded note so partial results still reach
// the caller; transport errors from a dispatched tool abort the plan.
func (p *Plan) Execute(ctx context.Context, d Dispatcher) (*Outcome, error) {
	out := &Outcome{Category: p.Category, Results: make(map[string]any)}

	for _, step := range p.Steps {
		if !d.Has(step.Tool) {
			note := fmt.Sprintf("tool unavailable: %s", step.Tool)
			log.Warn().Str("tool", step.Tool).Msg("Plan step skipped, tool not registered")
			out.Notes = append(out.Notes, note)
			continue
		}
		content, err := d.Dispatch(ctx, step.Tool, step.Args)
		if err != nil {
			return nil, fmt.Errorf("dispatch %s: %w", step.Tool, err)
		}
		out.Results[step.Tool] = content
	}
	return out, nil
}
