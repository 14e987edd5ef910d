package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// VersionResponse represents the API version response
type VersionResponse struct {
	Version string `json:"version"`
}

// ReadyResponse reports each dependency checked by /ready
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// CapabilityResponse reports which AI services are wired in
type CapabilityResponse struct {
	IndexBackend   string `json:"index_backend"`
	HistoryBackend string `json:"history_backend"`
	Embedding      bool   `json:"embedding_available"`
	Model          bool   `json:"model_available"`
	CanAnswer      bool   `json:"can_answer"`
}

// maxQueryBody bounds the request body of a query
const maxQueryBody = 64 << 10

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady pings every registered dependency and requires a chat model
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready", Checks: make(map[string]string, len(s.checks)+1)}
	status := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name].HealthCheck(r.Context()); err != nil {
			resp.Checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	if s.runtime != nil {
		if s.runtime.ModelAvailable() {
			resp.Checks["model"] = "ok"
		} else {
			resp.Checks["model"] = "not configured"
			status = http.StatusServiceUnavailable
		}
	}

	if status != http.StatusOK {
		resp.Status = "not ready"
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.runtime == nil {
		writeError(w, http.StatusServiceUnavailable, "runtime status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, CapabilityResponse{
		IndexBackend:   s.runtime.IndexBackend,
		HistoryBackend: s.runtime.HistoryBackend,
		Embedding:      s.runtime.EmbeddingAvailable(),
		Model:          s.runtime.ModelAvailable(),
		CanAnswer:      s.runtime.CanAnswer(),
	})
}

// Query endpoints

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQueryBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.queryService.Query(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err, "failed to answer query")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	if err := s.queryService.ClearSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err, "failed to clear session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Course endpoints

func (s *Server) handleCourseAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.courseService.Analytics(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to read course catalog")
		return
	}

	writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := s.courseService.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "failed to read course catalog")
		return
	}

	writeJSON(w, http.StatusOK, courses)
}

// Helper functions

// writeServiceError maps domain errors onto status codes. Unexpected errors
// are logged and hidden behind the fallback message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error(fallback, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
