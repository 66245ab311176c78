// Package engine is the temporal reasoning core of pizzatrack. It turns the
// raw per-frame stream of detector output into a small number of
// deduplicated hygiene-violation events: hands are tracked across frames,
// each track runs a per-episode state machine over ROI, scooper, and product
// contact evidence, and terminal transitions are filtered through a cooldown
// deduplicator.
//
// The engine processes frames strictly sequentially per session and performs
// no I/O. Callers own the serialization: Process must not be invoked
// concurrently for the same Engine.
package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// Engine drives the tracker, the per-track state machines, and the
// deduplicator for one session.
type Engine struct {
	cfg  Config
	log  logrus.FieldLogger
	rois []geometry.Labeled

	tracker *Tracker
	dedup   *Deduplicator

	lastFrame int64
}

// New creates an Engine for one session. At least one ROI is required; ROIs
// are immutable for the engine's lifetime.
func New(rois []detect.ROI, cfg Config, log logrus.FieldLogger) (*Engine, error) {
	if len(rois) == 0 {
		return nil, ErrNoROI
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	labeled := make([]geometry.Labeled, len(rois))
	for i, r := range rois {
		labeled[i] = geometry.Labeled{Label: r.Label, Box: r.Box}
	}

	return &Engine{
		cfg:       cfg,
		log:       log,
		rois:      labeled,
		tracker:   NewTracker(cfg, log),
		dedup:     NewDeduplicator(cfg, log),
		lastFrame: -1,
	}, nil
}

// Process consumes one detection frame and returns the violations it
// resolves. Frames must arrive with strictly increasing numbers: stale frames
// fail with ErrOutOfOrderFrame, resubmitted ones with ErrDuplicateFrame, and
// in both cases the frame is dropped and the session continues.
func (e *Engine) Process(frame *detect.Frame) ([]Event, error) {
	if frame.Number == e.lastFrame {
		return nil, fmt.Errorf("frame %d already processed: %w", frame.Number, ErrDuplicateFrame)
	}
	if frame.Number < e.lastFrame {
		return nil, fmt.Errorf("frame %d after frame %d: %w", frame.Number, e.lastFrame, ErrOutOfOrderFrame)
	}
	e.lastFrame = frame.Number

	dets, skipped := frame.ByClass(e.cfg.MinConfidence)
	if skipped > 0 {
		e.log.WithFields(logrus.Fields{
			"frame":   frame.Number,
			"skipped": skipped,
		}).Warn("malformed detections discarded")
	}

	seen, evicted := e.tracker.Update(dets[detect.ClassHand], frame.Number)

	// A track evicted before reaching a terminal state carried only partial
	// evidence; its episode is discarded without emission.
	for _, t := range evicted {
		t.resetEpisode()
		e.dedup.Forget(t.ID)
	}

	var pending []*Event
	for _, t := range seen {
		if ev := t.step(e.rois, dets, frame.Number, e.cfg, e.log); ev != nil {
			ev.Timestamp = frame.Timestamp
			pending = append(pending, ev)
		}
	}

	surviving := e.dedup.Filter(pending, frame.Number)

	events := make([]Event, 0, len(surviving))
	for _, ev := range surviving {
		e.log.WithFields(logrus.Fields{
			"track": ev.TrackID,
			"frame": ev.FrameNumber,
			"roi":   ev.ROILabel,
			"type":  ev.Type,
		}).Info("violation detected")
		events = append(events, *ev)
	}
	return events, nil
}

// Snapshot returns a read-only view of the active tracks for overlay
// rendering. The returned slice shares nothing with engine state.
func (e *Engine) Snapshot() []TrackView {
	active := e.tracker.Active()
	views := make([]TrackView, 0, len(active))
	for _, t := range active {
		views = append(views, TrackView{
			ID:          t.ID,
			Box:         t.LastBox,
			State:       t.state,
			LastSeen:    t.LastSeen,
			ROILabel:    t.roiLabel,
			ScooperSeen: t.scooperSeen,
		})
	}
	return views
}

// ROIs returns the session's configured regions of interest.
func (e *Engine) ROIs() []geometry.Labeled {
	return e.rois
}

// Reset clears all tracks and cooldowns so the engine can start a new
// session. Frame numbering restarts as well.
func (e *Engine) Reset() {
	e.tracker.Reset()
	e.dedup.Reset()
	e.lastFrame = -1
}
