package api

import (
	"net/http"
	"time"

	"github.com/aymanhs/pizzatrack/internal/store"
)

// StatsHandler serves aggregate violation statistics.
type StatsHandler struct {
	store *store.Store
}

// NewStatsHandler creates a StatsHandler with the given store.
func NewStatsHandler(s *store.Store) *StatsHandler {
	return &StatsHandler{store: s}
}

type statsResponse struct {
	TotalViolations  int            `json:"total_violations"`
	ViolationsByType map[string]int `json:"violations_by_type"`
	RecentViolations int            `json:"recent_violations"`
	Timestamp        string         `json:"timestamp"`
}

// ServeHTTP handles GET /api/stats. Recent counts cover the last hour.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	total, err := h.store.Violations().Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count violations")
		return
	}

	byType, err := h.store.Violations().CountByType()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to group violations")
		return
	}

	recent, err := h.store.Violations().CountSince(time.Now().Add(-time.Hour))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count recent violations")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalViolations:  total,
		ViolationsByType: byType,
		RecentViolations: recent,
		Timestamp:        time.Now().Format(time.RFC3339),
	})
}
