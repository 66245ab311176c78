package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/app"
	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/engine"
	"github.com/aymanhs/pizzatrack/internal/geometry"
	"github.com/aymanhs/pizzatrack/internal/server"
	"github.com/aymanhs/pizzatrack/internal/store"
	"github.com/aymanhs/pizzatrack/internal/transport"
)

// queuePublisher records published result messages in place of the broker.
type queuePublisher struct {
	published [][]byte
}

func (p *queuePublisher) Publish(queue string, body []byte) error {
	p.published = append(p.published, body)
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func hand(x1 float64) transport.WireDetection {
	return transport.WireDetection{
		Label:      "hand",
		BBox:       [4]float64{x1, 120, x1 + 50, 170},
		Confidence: 0.9,
	}
}

func detectionBody(t *testing.T, source string, n int64, dets ...transport.WireDetection) []byte {
	t.Helper()
	body, err := json.Marshal(transport.DetectionMessage{
		Source:      source,
		FrameNumber: n,
		Timestamp:   time.Unix(1700000000, 0).Add(time.Duration(n) * 33 * time.Millisecond),
		Detections:  dets,
	})
	if err != nil {
		t.Fatalf("marshal detection message: %v", err)
	}
	return body
}

// TestE2E_ViolationWorkflow drives a scripted hand trajectory through the
// full pipeline: detection messages in, engine processing, violation
// persistence, and the dashboard API out the other side.
func TestE2E_ViolationWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tmpDir := t.TempDir()

	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	pub := &queuePublisher{}
	pipeline, err := app.New(app.Config{
		Store: s,
		ROIs: []detect.ROI{
			{Label: "container", Box: geometry.BBox{X1: 100, Y1: 100, X2: 200, Y2: 200}},
		},
		Engine:       engine.DefaultConfig(),
		ResultsQueue: "results_queue",
		Logger:       quietLogger(),
	}, pub)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	hub := server.NewHub(quietLogger())
	pipeline.OnResult = hub.Broadcast

	srv := server.New(server.Config{
		Store:  s,
		Tracks: pipeline,
		Hub:    hub,
		Logger: quietLogger(),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	t.Run("FeedFrames", func(t *testing.T) {
		// A hand dips into the container, then carries an ingredient to
		// the pizza without a scooper ever appearing.
		positions := map[int64]float64{6: 140, 7: 160, 8: 180, 9: 200, 10: 220, 11: 240}

		for n := int64(1); n <= 11; n++ {
			x := 120.0
			if p, ok := positions[n]; ok {
				x = p
			}
			dets := []transport.WireDetection{hand(x)}
			if n == 11 {
				dets = append(dets, transport.WireDetection{
					Label:      "pizza",
					BBox:       [4]float64{230, 100, 340, 220},
					Confidence: 0.9,
				})
			}
			res, err := pipeline.HandleMessage(detectionBody(t, "cam-1", n, dets...))
			if err != nil {
				t.Fatalf("HandleMessage(frame %d) error = %v", n, err)
			}
			if n == 11 && !res.ViolationDetected {
				t.Fatal("expected final frame to resolve a violation")
			}
		}

		if len(pub.published) != 11 {
			t.Errorf("published results = %d, want 11", len(pub.published))
		}
	})

	t.Run("ViolationsAPI", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/violations")
		if err != nil {
			t.Fatalf("GET /api/violations error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		var listed struct {
			Total      int `json:"total"`
			Violations []struct {
				ID     string `json:"id"`
				Type   string `json:"violation_type"`
				Source string `json:"source"`
			} `json:"violations"`
		}
		json.NewDecoder(resp.Body).Decode(&listed)

		if listed.Total != 1 {
			t.Fatalf("total = %d, want 1", listed.Total)
		}
		if listed.Violations[0].Type != engine.ViolationType {
			t.Errorf("type = %s, want %s", listed.Violations[0].Type, engine.ViolationType)
		}
		if listed.Violations[0].Source != "cam-1" {
			t.Errorf("source = %s, want cam-1", listed.Violations[0].Source)
		}

		// Single-violation lookup round trips.
		resp, err = client.Get(ts.URL + "/api/violations/" + listed.Violations[0].ID)
		if err != nil {
			t.Fatalf("GET violation by id error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET by id status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("StatsAPI", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/stats")
		if err != nil {
			t.Fatalf("GET /api/stats error = %v", err)
		}
		defer resp.Body.Close()

		var stats struct {
			TotalViolations  int            `json:"total_violations"`
			ViolationsByType map[string]int `json:"violations_by_type"`
		}
		json.NewDecoder(resp.Body).Decode(&stats)

		if stats.TotalViolations != 1 {
			t.Errorf("total_violations = %d, want 1", stats.TotalViolations)
		}
		if stats.ViolationsByType[engine.ViolationType] != 1 {
			t.Errorf("violations_by_type[%s] = %d, want 1",
				engine.ViolationType, stats.ViolationsByType[engine.ViolationType])
		}
	})

	t.Run("TracksAPI", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/tracks?source=cam-1")
		if err != nil {
			t.Fatalf("GET /api/tracks error = %v", err)
		}
		defer resp.Body.Close()

		var tracks struct {
			Source         string `json:"source"`
			ViolationCount int    `json:"violation_count"`
		}
		json.NewDecoder(resp.Body).Decode(&tracks)

		if tracks.Source != "cam-1" {
			t.Errorf("source = %s, want cam-1", tracks.Source)
		}
		if tracks.ViolationCount != 1 {
			t.Errorf("violation_count = %d, want 1", tracks.ViolationCount)
		}
	})

	t.Run("HealthStillOK", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/health")
		if err != nil {
			t.Fatalf("GET /api/health error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("health check failed after pipeline operations")
		}
	})
}

// TestE2E_SourcesAreIsolated checks that two cameras feeding frames with the
// same frame numbers do not interfere with each other's sessions.
func TestE2E_SourcesAreIsolated(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	pipeline, err := app.New(app.Config{
		Store: s,
		ROIs: []detect.ROI{
			{Label: "container", Box: geometry.BBox{X1: 100, Y1: 100, X2: 200, Y2: 200}},
		},
		Engine:       engine.DefaultConfig(),
		ResultsQueue: "results_queue",
		Logger:       quietLogger(),
	}, &queuePublisher{})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	for _, source := range []string{"cam-a", "cam-b"} {
		if _, err := pipeline.HandleMessage(detectionBody(t, source, 1, hand(120))); err != nil {
			t.Fatalf("HandleMessage(%s) error = %v", source, err)
		}
	}

	// Same frame number on a different source must not look like a
	// duplicate.
	if _, err := pipeline.HandleMessage(detectionBody(t, "cam-b", 2, hand(120))); err != nil {
		t.Fatalf("HandleMessage(cam-b frame 2) error = %v", err)
	}

	sources := pipeline.Sources()
	if len(sources) != 2 {
		t.Errorf("sources = %v, want 2 entries", sources)
	}
}
