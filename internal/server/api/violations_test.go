package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aymanhs/pizzatrack/internal/engine"
	"github.com/aymanhs/pizzatrack/internal/geometry"
	"github.com/aymanhs/pizzatrack/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "pizzatrack-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// seedViolation inserts a violation record for testing.
func seedViolation(t *testing.T, s *store.Store, id, trackID string, frame int64) *store.Violation {
	t.Helper()

	v := &store.Violation{
		ID:          id,
		TrackID:     trackID,
		Source:      "cam-1",
		FrameNumber: frame,
		Timestamp:   time.Now().UTC(),
		Type:        engine.ViolationType,
		Confidence:  0.87,
	}
	if err := s.Violations().Create(v); err != nil {
		t.Fatalf("failed to create violation: %v", err)
	}
	return v
}

func TestViolationsHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewViolationsHandler(s)

	seedViolation(t, s, "viol-1", "track-a", 42)
	seedViolation(t, s, "viol-2", "track-b", 77)

	req := httptest.NewRequest(http.MethodGet, "/api/violations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", contentType)
	}

	var response listViolationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Total != 2 {
		t.Errorf("expected total 2, got %d", response.Total)
	}

	if len(response.Violations) != 2 {
		t.Fatalf("expected 2 violations, got %d", len(response.Violations))
	}

	// List returns newest first.
	if response.Violations[0].ID != "viol-2" {
		t.Errorf("expected newest violation first, got %q", response.Violations[0].ID)
	}
}

func TestViolationsHandler_List_Empty(t *testing.T) {
	s := newTestStore(t)
	handler := NewViolationsHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/violations", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response listViolationsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Total != 0 {
		t.Errorf("expected total 0, got %d", response.Total)
	}

	if response.Violations == nil {
		t.Error("expected empty array, got null")
	}
}

func TestViolationsHandler_Count(t *testing.T) {
	s := newTestStore(t)
	handler := NewViolationsHandler(s)

	seedViolation(t, s, "viol-1", "track-a", 42)

	req := httptest.NewRequest(http.MethodGet, "/api/violations/count", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if count, ok := response["count"].(float64); !ok || count != 1 {
		t.Errorf("expected count 1, got %v", response["count"])
	}
}

func TestViolationsHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewViolationsHandler(s)

	seedViolation(t, s, "viol-1", "track-a", 42)

	req := httptest.NewRequest(http.MethodGet, "/api/violations/viol-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response violationResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.ID != "viol-1" {
		t.Errorf("expected ID 'viol-1', got %q", response.ID)
	}

	if response.TrackID != "track-a" {
		t.Errorf("expected track ID 'track-a', got %q", response.TrackID)
	}

	if response.Type != engine.ViolationType {
		t.Errorf("expected type %q, got %q", engine.ViolationType, response.Type)
	}

	if response.FrameNumber != 42 {
		t.Errorf("expected frame number 42, got %d", response.FrameNumber)
	}
}

func TestViolationsHandler_Get_NotFound(t *testing.T) {
	s := newTestStore(t)
	handler := NewViolationsHandler(s)

	req := httptest.NewRequest(http.MethodGet, "/api/violations/non-existent", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestViolationsHandler_MethodNotAllowed(t *testing.T) {
	s := newTestStore(t)
	handler := NewViolationsHandler(s)

	req := httptest.NewRequest(http.MethodDelete, "/api/violations/viol-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestStatsHandler(t *testing.T) {
	s := newTestStore(t)
	handler := NewStatsHandler(s)

	seedViolation(t, s, "viol-1", "track-a", 42)
	seedViolation(t, s, "viol-2", "track-b", 77)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.TotalViolations != 2 {
		t.Errorf("expected 2 total violations, got %d", response.TotalViolations)
	}

	if response.ViolationsByType[engine.ViolationType] != 2 {
		t.Errorf("expected 2 violations of type %q, got %d",
			engine.ViolationType, response.ViolationsByType[engine.ViolationType])
	}

	// Both were just inserted, so both count as recent.
	if response.RecentViolations != 2 {
		t.Errorf("expected 2 recent violations, got %d", response.RecentViolations)
	}
}

// fakeTrackSource implements TrackSource for handler tests.
type fakeTrackSource struct {
	tracks     map[string][]engine.TrackView
	violations map[string]int
}

func (f *fakeTrackSource) Snapshot(source string) []engine.TrackView {
	return f.tracks[source]
}

func (f *fakeTrackSource) Sources() []string {
	sources := make([]string, 0, len(f.tracks))
	for s := range f.tracks {
		sources = append(sources, s)
	}
	return sources
}

func (f *fakeTrackSource) ViolationCount(source string) int {
	return f.violations[source]
}

func TestTracksHandler(t *testing.T) {
	src := &fakeTrackSource{
		tracks: map[string][]engine.TrackView{
			"cam-1": {
				{
					ID:       "track-a",
					Box:      geometry.BBox{X1: 10, Y1: 10, X2: 60, Y2: 60},
					State:    "holding",
					LastSeen: 42,
				},
			},
		},
		violations: map[string]int{"cam-1": 3},
	}
	handler := NewTracksHandler(src)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks?source=cam-1", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response tracksResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Source != "cam-1" {
		t.Errorf("expected source 'cam-1', got %q", response.Source)
	}

	if len(response.Tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(response.Tracks))
	}

	if response.Tracks[0].ID != "track-a" {
		t.Errorf("expected track ID 'track-a', got %q", response.Tracks[0].ID)
	}

	if response.ViolationCount != 3 {
		t.Errorf("expected violation count 3, got %d", response.ViolationCount)
	}
}

func TestTracksHandler_DefaultSource(t *testing.T) {
	src := &fakeTrackSource{
		tracks:     map[string][]engine.TrackView{},
		violations: map[string]int{},
	}
	handler := NewTracksHandler(src)

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var response tracksResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Source != "default" {
		t.Errorf("expected source 'default', got %q", response.Source)
	}

	if response.Tracks == nil {
		t.Error("expected empty track array, got null")
	}
}
