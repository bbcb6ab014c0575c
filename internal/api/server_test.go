package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"devops-pulse/internal/insights"
	"devops-pulse/internal/registry"
)

type fixedSession struct {
	responses map[string]string
}

func (f *fixedSession) ListTools(ctx context.Context) ([]registry.Tool, error) {
	var tools []registry.Tool
	for name := range f.responses {
		tools = append(tools, registry.Tool{Name: name})
	}
	return tools, nil
}

func (f *fixedSession) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	return []any{map[string]any{"type": "text", "text": f.responses[name]}}, nil
}

func (f *fixedSession) Close() error { return nil }

func testHandler(t *testing.T) http.Handler {
	t.Helper()

	session := &fixedSession{responses: map[string]string{
		"core_list_project_teams": `[{"id": "team-1"}]`,
		"work_list_iterations": `[{
			"id": "it-1", "identifier": "guid-1", "name": "Sprint 1", "path": "Proj\\Sprint 1",
			"attributes": {"startDate": "2025-03-03T00:00:00Z", "finishDate": "2025-03-14T00:00:00Z", "timeFrame": "current"}
		}]`,
		"repo_list_pull_requests_by_repo_or_project": `[]`,
		"wit_list_backlogs":                          `[{"id": "bl-1"}]`,
		"wit_list_backlog_work_items":                `{"workItems": []}`,
		"wit_get_work_items_for_iteration":           `{"workItemRelations": []}`,
	}}

	reg := registry.New()
	if err := reg.Register(context.Background(), "azure-devops", session); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	svc := insights.New(reg, "Proj", "")
	return NewServer(svc, "", 5*time.Second).Handler()
}

func TestHandler_Dashboard(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if _, ok := body["stats"]; !ok {
		t.Errorf("missing stats: %v", body)
	}
}

func TestHandler_SprintInsightsNotFound(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sprints/Sprint%2099/insights", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["detail"] == "" {
		t.Error("expected an error detail")
	}
}

func TestHandler_InsightNeedsInput(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/devops-insight",
		strings.NewReader(`{"prompts": ["show me the velocity"]}`))
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestHandler_InsightBadRequest(t *testing.T) {
	h := testHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"EmptyPrompts", `{"prompts": []}`},
		{"MalformedJSON", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/devops-insight", strings.NewReader(tt.body))
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestHandler_InsightFallbackSignal(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/devops-insight",
		strings.NewReader(`{"prompts": ["list my repositories"]}`))
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Handled bool `json:"handled"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body.Handled {
		t.Error("expected handled=false for an unmatched prompt")
	}
}

func TestHandler_CORSPreflight(t *testing.T) {
	h := testHandler(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers")
	}
}
