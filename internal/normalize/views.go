package normalize

import (
	"strings"
	"time"
)

// Sprint is a typed view over an iteration node.
type Sprint struct {
	ID         string
	Identifier string
	Name       string
	Path       string
	StartDate  string
	FinishDate string
	TimeFrame  string // past, current, future; authoritative when present
}

// AsSprint extracts the sprint fields from an iteration node.
func AsSprint(node map[string]any) Sprint {
	s := Sprint{
		ID:         asString(node["id"]),
		Identifier: asString(node["identifier"]),
		Name:       asString(node["name"]),
		Path:       asString(node["path"]),
	}
	if attrs, ok := node["attributes"].(map[string]any); ok {
		s.StartDate = asString(attrs["startDate"])
		s.FinishDate = asString(attrs["finishDate"])
		s.TimeFrame = asString(attrs["timeFrame"])
	}
	return s
}

// Status classifies the sprint as past, current, or future. The advertised
// timeFrame wins over any inference from dates.
func (s Sprint) Status(now time.Time) string {
	if s.TimeFrame != "" {
		return strings.ToLower(s.TimeFrame)
	}
	start, okStart := ParseTime(s.StartDate)
	finish, okFinish := ParseTime(s.FinishDate)
	switch {
	case okFinish && now.After(finish):
		return "past"
	case okStart && now.Before(start):
		return "future"
	case okStart && okFinish:
		return "current"
	default:
		return "current"
	}
}

// Current reports whether the sprint is positively in flight: either its
// timeFrame says so or its dates bracket now. Unlike Status, nodes carrying
// neither signal (program/container nodes without attributes) do not
// qualify, so walking a tree for the active sprint never stops on a
// container.
func (s Sprint) Current(now time.Time) bool {
	if s.TimeFrame != "" {
		return strings.EqualFold(s.TimeFrame, "current")
	}
	start, okStart := ParseTime(s.StartDate)
	finish, okFinish := ParseTime(s.FinishDate)
	return okStart && okFinish && !now.Before(start) && !now.After(finish)
}

// completedStates is the fixed set of states counted as done.
var completedStates = map[string]bool{
	"closed":   true,
	"done":     true,
	"resolved": true,
}

// WorkItem is a typed view over a work-item map.
type WorkItem struct {
	ID          any
	State       string
	Assignee    string
	Effort      float64
	CreatedDate string
	ClosedDate  string
}

// AsWorkItem extracts the fields the aggregator needs from a work-item map.
func AsWorkItem(m map[string]any) WorkItem {
	return WorkItem{
		ID:          m["id"],
		State:       asString(m["state"]),
		Assignee:    assigneeName(m["assignedTo"]),
		Effort:      effortOf(m),
		CreatedDate: asString(m["createdDate"]),
		ClosedDate:  asString(m["closedDate"]),
	}
}

// Completed reports whether the item's state is in the completed set.
// Comparison is case-insensitive since state vocabularies differ per process
// template.
func (w WorkItem) Completed() bool {
	return completedStates[strings.ToLower(w.State)]
}

// effortFields is the precedence order for the effort value. The flat keys
// come from summarized responses, the fields map from full work-item detail
// responses.
var effortFields = []string{
	"Microsoft.VSTS.Scheduling.StoryPoints",
	"Microsoft.VSTS.Scheduling.Effort",
}

func effortOf(m map[string]any) float64 {
	if v, ok := asFloat(m["effort"]); ok {
		return v
	}
	if v, ok := asFloat(m["storyPoints"]); ok {
		return v
	}
	if fields, ok := m["fields"].(map[string]any); ok {
		for _, key := range effortFields {
			if v, ok := asFloat(fields[key]); ok {
				return v
			}
		}
	}
	return 1
}

// assigneeName resolves an assignee value, which is either a plain string or
// a structured identity, to a single display string.
func assigneeName(v any) string {
	switch a := v.(type) {
	case string:
		if a != "" {
			return a
		}
	case map[string]any:
		if name := asString(a["displayName"]); name != "" {
			return name
		}
		if name := asString(a["uniqueName"]); name != "" {
			return name
		}
	}
	return "Unassigned"
}

// PullRequest is a typed view over a pull-request map.
type PullRequest struct {
	ID           any
	Status       string
	CreationDate string
	ClosedDate   string
}

// AsPullRequest extracts the fields the aggregator needs.
func AsPullRequest(m map[string]any) PullRequest {
	id := m["pullRequestId"]
	if id == nil {
		id = m["id"]
	}
	return PullRequest{
		ID:           id,
		Status:       asString(m["status"]),
		CreationDate: asString(m["creationDate"]),
		ClosedDate:   asString(m["closedDate"]),
	}
}

// Completed reports whether the pull request has been completed (merged).
func (p PullRequest) Completed() bool {
	return strings.EqualFold(p.Status, "completed")
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO-8601 timestamp. A trailing literal Z is already an
// explicit UTC offset under RFC 3339; bare local forms without an offset are
// read as UTC. Returns false for anything unparsable.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
