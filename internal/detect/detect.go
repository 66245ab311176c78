// Package detect defines the data model shared between the external object
// detector and the violation detection engine: per-frame detections, frames,
// and configured regions of interest.
package detect

import (
	"fmt"
	"strings"
	"time"

	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// Class is the object class assigned by the detector.
type Class string

const (
	ClassHand    Class = "hand"
	ClassPerson  Class = "person"
	ClassPizza   Class = "pizza"
	ClassScooper Class = "scooper"
)

// ParseClass maps a detector label to a Class, case-insensitively.
// Unknown labels return an error; callers typically skip those detections.
func ParseClass(label string) (Class, error) {
	switch Class(strings.ToLower(label)) {
	case ClassHand:
		return ClassHand, nil
	case ClassPerson:
		return ClassPerson, nil
	case ClassPizza:
		return ClassPizza, nil
	case ClassScooper:
		return ClassScooper, nil
	}
	return "", fmt.Errorf("unknown detection class %q", label)
}

// Detection is one labeled, confidence-scored bounding box produced by the
// external detector. Detections are immutable inputs; the engine never
// mutates them.
type Detection struct {
	Class      Class         `json:"class"`
	Box        geometry.BBox `json:"bbox"`
	Confidence float64       `json:"confidence"`
}

// Validate reports whether the detection carries a well-formed box and a
// confidence in [0,1].
func (d Detection) Validate() error {
	if !d.Box.Valid() {
		return fmt.Errorf("malformed bbox (%.1f,%.1f,%.1f,%.1f)", d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.3f out of range", d.Confidence)
	}
	return nil
}

// Frame is one video frame's worth of detector output. Frame numbers are
// strictly increasing within a session.
type Frame struct {
	Number     int64       `json:"frame_number"`
	Timestamp  time.Time   `json:"timestamp"`
	Detections []Detection `json:"detections"`
}

// ByClass splits the frame's detections per class, dropping detections below
// minConfidence. Malformed detections are skipped and counted; a single bad
// box must not halt the frame.
func (f *Frame) ByClass(minConfidence float64) (map[Class][]Detection, int) {
	out := make(map[Class][]Detection)
	skipped := 0
	for _, d := range f.Detections {
		if d.Validate() != nil {
			skipped++
			continue
		}
		if d.Confidence < minConfidence {
			continue
		}
		out[d.Class] = append(out[d.Class], d)
	}
	return out, skipped
}

// ROI is a fixed region of interest marking an ingredient container.
// ROIs are configured before a session starts and never change mid-session.
type ROI struct {
	Label string        `json:"label"`
	Box   geometry.BBox `json:"bbox"`
}
