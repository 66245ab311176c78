package transport

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/engine"
	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// FrameMessage is a raw video frame published by the frame reader for the
// external detector.
type FrameMessage struct {
	Source      string    `json:"source,omitempty"`
	FrameNumber int64     `json:"frame_number"`
	Timestamp   time.Time `json:"timestamp"`
	FrameData   string    `json:"frame_data"` // base64 JPEG
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
}

// WireDetection is one detector bounding box on the wire.
type WireDetection struct {
	Label      string     `json:"class"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2
	Confidence float64    `json:"confidence"`
}

// DetectionMessage is one frame's worth of detector output, optionally
// carrying the JPEG frame for annotation.
type DetectionMessage struct {
	Source      string          `json:"source,omitempty"`
	FrameNumber int64           `json:"frame_number"`
	Timestamp   time.Time       `json:"timestamp"`
	FrameData   string          `json:"frame_data,omitempty"` // base64 JPEG
	Detections  []WireDetection `json:"detections"`
}

// Frame converts the wire message into an engine frame. Detections with
// labels outside the model's class set are skipped and logged; the detector
// owns its label vocabulary, not the engine.
func (m *DetectionMessage) Frame(log logrus.FieldLogger) *detect.Frame {
	f := &detect.Frame{
		Number:    m.FrameNumber,
		Timestamp: m.Timestamp,
	}

	for _, wd := range m.Detections {
		class, err := detect.ParseClass(wd.Label)
		if err != nil {
			log.WithFields(logrus.Fields{
				"frame": m.FrameNumber,
				"label": wd.Label,
			}).Debug("skipping detection with unknown class")
			continue
		}
		f.Detections = append(f.Detections, detect.Detection{
			Class:      class,
			Box:        geometry.BBox{X1: wd.BBox[0], Y1: wd.BBox[1], X2: wd.BBox[2], Y2: wd.BBox[3]},
			Confidence: wd.Confidence,
		})
	}

	return f
}

// ResultMessage is the annotated per-frame output published for the
// dashboard.
type ResultMessage struct {
	Source            string             `json:"source,omitempty"`
	FrameNumber       int64              `json:"frame_number"`
	Timestamp         time.Time          `json:"timestamp"`
	FrameData         string             `json:"frame_data,omitempty"` // annotated base64 JPEG
	ViolationDetected bool               `json:"violation_detected"`
	ViolationCount    int                `json:"violation_count"`
	Violations        []engine.Event     `json:"violations,omitempty"`
	Tracks            []engine.TrackView `json:"tracks,omitempty"`
}
