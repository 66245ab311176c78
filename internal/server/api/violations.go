// Package api provides the HTTP API handlers for the pizzatrack dashboard.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aymanhs/pizzatrack/internal/store"
)

// ViolationsHandler handles HTTP requests for violation resources.
type ViolationsHandler struct {
	store *store.Store
}

// NewViolationsHandler creates a ViolationsHandler with the given store.
func NewViolationsHandler(s *store.Store) *ViolationsHandler {
	return &ViolationsHandler{store: s}
}

// ServeHTTP routes requests between the collection, the count endpoint, and
// single violations.
// Expected paths: /api/violations, /api/violations/count, /api/violations/{id}
func (h *ViolationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/violations")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		h.list(w, r)
	case "count":
		h.count(w, r)
	default:
		h.get(w, r, path)
	}
}

type violationResponse struct {
	ID          string          `json:"id"`
	TrackID     string          `json:"track_id"`
	Source      string          `json:"source"`
	FrameNumber int64           `json:"frame_number"`
	Timestamp   string          `json:"timestamp"`
	Type        string          `json:"violation_type"`
	Confidence  float64         `json:"confidence"`
	FramePath   string          `json:"frame_path,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type listViolationsResponse struct {
	Total      int                 `json:"total"`
	Violations []violationResponse `json:"violations"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Violation to a violationResponse.
func toResponse(v *store.Violation) violationResponse {
	return violationResponse{
		ID:          v.ID,
		TrackID:     v.TrackID,
		Source:      v.Source,
		FrameNumber: v.FrameNumber,
		Timestamp:   v.Timestamp.Format(time.RFC3339),
		Type:        v.Type,
		Confidence:  v.Confidence,
		FramePath:   v.FramePath,
		Metadata:    v.Metadata,
		CreatedAt:   v.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/violations and returns all violations, newest first.
func (h *ViolationsHandler) list(w http.ResponseWriter, r *http.Request) {
	violations, err := h.store.Violations().List(0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list violations")
		return
	}

	response := listViolationsResponse{
		Total:      len(violations),
		Violations: make([]violationResponse, 0, len(violations)),
	}
	for _, v := range violations {
		response.Violations = append(response.Violations, toResponse(v))
	}

	writeJSON(w, http.StatusOK, response)
}

// count handles GET /api/violations/count.
func (h *ViolationsHandler) count(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.Violations().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count violations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     count,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// get handles GET /api/violations/{id}.
func (h *ViolationsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	violation, err := h.store.Violations().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Violation not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get violation")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(violation))
}
