package api

import (
	"net/http"
	"time"

	"github.com/aymanhs/pizzatrack/internal/engine"
)

// TrackSource exposes live track state for the API. It is implemented by the
// application pipeline.
type TrackSource interface {
	Snapshot(source string) []engine.TrackView
	Sources() []string
	ViolationCount(source string) int
}

// TracksHandler serves live track state for a video source.
type TracksHandler struct {
	tracks TrackSource
}

// NewTracksHandler creates a TracksHandler backed by the given source.
func NewTracksHandler(tracks TrackSource) *TracksHandler {
	return &TracksHandler{tracks: tracks}
}

type tracksResponse struct {
	Source         string             `json:"source"`
	Tracks         []engine.TrackView `json:"tracks"`
	ViolationCount int                `json:"violation_count"`
	Timestamp      string             `json:"timestamp"`
}

// ServeHTTP handles GET /api/tracks?source={source}. The source defaults to
// "default" when omitted.
func (h *TracksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = "default"
	}

	tracks := h.tracks.Snapshot(source)
	if tracks == nil {
		tracks = []engine.TrackView{}
	}

	writeJSON(w, http.StatusOK, tracksResponse{
		Source:         source,
		Tracks:         tracks,
		ViolationCount: h.tracks.ViolationCount(source),
		Timestamp:      time.Now().Format(time.RFC3339),
	})
}
