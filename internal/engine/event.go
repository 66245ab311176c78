package engine

import (
	"time"

	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// Event is one detected hygiene violation. It is created exactly once per
// qualifying physical event and handed to the caller; the engine itself keeps
// no long-term store of violations.
type Event struct {
	TrackID     string        `json:"track_id"`
	FrameNumber int64         `json:"frame_number"`
	Timestamp   time.Time     `json:"timestamp"`
	Type        string        `json:"violation_type"`
	Confidence  float64       `json:"confidence"`
	ROILabel    string        `json:"roi_label"`
	HandBox     geometry.BBox `json:"hand_bbox"`
	ProductBox  geometry.BBox `json:"product_bbox"`
}

// TrackView is a read-only snapshot of one active track, for overlay
// rendering and debugging.
type TrackView struct {
	ID          string        `json:"id"`
	Box         geometry.BBox `json:"bbox"`
	State       State         `json:"state"`
	LastSeen    int64         `json:"last_seen_frame"`
	ROILabel    string        `json:"roi_label,omitempty"`
	ScooperSeen bool          `json:"scooper_seen"`
}
