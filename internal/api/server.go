// Package api exposes the dashboard and insight operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"devops-pulse/internal/insights"
	"devops-pulse/internal/intent"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Server wires the insight service to HTTP routes.
type Server struct {
	svc     *insights.Service
	webDir  string
	timeout time.Duration
}

// NewServer creates the HTTP front door. webDir, when non-empty and present
// on disk, is served at the root for the bundled dashboard frontend.
func NewServer(svc *insights.Service, webDir string, timeout time.Duration) *Server {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Server{svc: svc, webDir: webDir, timeout: timeout}
}

// Handler builds the route table with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/devops-insight", s.handleInsight)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/sprints", s.handleSprints)
	mux.HandleFunc("GET /api/sprints/{sprint}/insights", s.handleSprintInsights)

	if s.webDir != "" {
		if _, err := os.Stat(s.webDir); err == nil {
			mux.Handle("/", http.FileServer(http.Dir(s.webDir)))
		}
	}

	return requestID(cors(s.withTimeout(mux)))
}

type insightRequest struct {
	Prompts []string `json:"prompts"`
}

type insightResponse struct {
	Handled bool            `json:"handled"`
	Outcome *intent.Outcome `json:"outcome,omitempty"`
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	var req insightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Prompts) == 0 {
		writeError(w, http.StatusBadRequest, "prompts must not be empty")
		return
	}

	outcome, handled, err := s.svc.HandleInsight(r.Context(), req.Prompts)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{Handled: handled, Outcome: outcome})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Dashboard(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSprints(w http.ResponseWriter, r *http.Request) {
	sprints, err := s.svc.ListSprints(r.Context())
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sprints)
}

func (s *Server) handleSprintInsights(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Insights(r.Context(), r.PathValue("sprint"))
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeFailure maps service errors onto HTTP statuses.
func (s *Server) writeFailure(w http.ResponseWriter, err error) {
	var notFound *insights.NotFoundError
	var needsInput *intent.NeedsInputError

	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &needsInput):
		writeError(w, http.StatusUnprocessableEntity, needsInput.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		log.Error().Err(err).Msg("Request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// withTimeout bounds every request by the configured deadline. Handlers see
// the expiry as context.DeadlineExceeded on their tool calls, which
// writeFailure maps to 504.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors allows the frontend dev server to call the API from another origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestID tags every request with a uuid and logs its outcome duration.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		next.ServeHTTP(w, r)

		log.Info().
			Str("requestId", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
