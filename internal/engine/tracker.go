package engine

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// Track follows one physical hand across consecutive frames. IDs are unique
// within a session and never reused after eviction.
type Track struct {
	ID       string
	LastBox  geometry.BBox
	LastSeen int64

	misses int
	state  State

	// Episode evidence, reset whenever the track reaches a terminal state.
	roiTouchedFrame int64
	roiLabel        string
	scooperSeen     bool
}

// Tracker maintains hand identity continuity across frames despite detector
// noise. It owns the table of active tracks for one session.
type Tracker struct {
	cfg    Config
	log    logrus.FieldLogger
	tracks []*Track
}

// NewTracker creates a Tracker with the given thresholds.
func NewTracker(cfg Config, log logrus.FieldLogger) *Tracker {
	return &Tracker{cfg: cfg, log: log}
}

// candidate is one (track, detection) pairing considered during matching.
type candidate struct {
	trackIdx int
	detIdx   int
	iou      float64
}

// Update matches the frame's hand detections against existing tracks using
// greedy IoU matching: pairs are processed in descending IoU order, a
// detection is assigned to the highest-IoU unmatched track above MatchIoU,
// and once either side is consumed the pair is skipped. Unmatched detections
// spawn new tracks; unmatched tracks accumulate misses and are evicted once
// the miss count exceeds the patience window.
//
// It returns the tracks seen in this frame (matched or newly spawned) and the
// tracks evicted by it.
func (tr *Tracker) Update(hands []detect.Detection, frameNum int64) (seen, evicted []*Track) {
	var pairs []candidate
	for ti, t := range tr.tracks {
		for di, d := range hands {
			iou := geometry.IoU(t.LastBox, d.Box)
			if iou > tr.cfg.MatchIoU {
				pairs = append(pairs, candidate{trackIdx: ti, detIdx: di, iou: iou})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].iou > pairs[j].iou
	})

	matchedTracks := make(map[int]bool)
	matchedDets := make(map[int]bool)
	for _, p := range pairs {
		if matchedTracks[p.trackIdx] || matchedDets[p.detIdx] {
			continue
		}
		matchedTracks[p.trackIdx] = true
		matchedDets[p.detIdx] = true

		t := tr.tracks[p.trackIdx]
		t.LastBox = hands[p.detIdx].Box
		t.LastSeen = frameNum
		t.misses = 0
		seen = append(seen, t)
	}

	// Unmatched detections become new tracks. There is no cap on simultaneous
	// hands: an implausible count is a detector-quality problem, not a
	// tracker error.
	for di, d := range hands {
		if matchedDets[di] {
			continue
		}
		t := &Track{
			ID:              uuid.New().String(),
			LastBox:         d.Box,
			LastSeen:        frameNum,
			state:           StateIdle,
			roiTouchedFrame: -1,
		}
		tr.tracks = append(tr.tracks, t)
		seen = append(seen, t)
		tr.log.WithFields(logrus.Fields{
			"track": t.ID,
			"frame": frameNum,
		}).Debug("new hand track")
	}

	// Unmatched tracks age out.
	kept := tr.tracks[:0]
	for ti, t := range tr.tracks {
		if t.LastSeen == frameNum || matchedTracks[ti] {
			kept = append(kept, t)
			continue
		}
		t.misses++
		if t.misses > tr.cfg.Patience {
			evicted = append(evicted, t)
			tr.log.WithFields(logrus.Fields{
				"track":  t.ID,
				"frame":  frameNum,
				"misses": t.misses,
				"state":  t.state,
			}).Debug("track evicted")
			continue
		}
		kept = append(kept, t)
	}
	tr.tracks = kept

	return seen, evicted
}

// Active returns the current track table.
func (tr *Tracker) Active() []*Track {
	return tr.tracks
}

// Reset drops all tracks. Evicted IDs are never reused because IDs are
// freshly generated per track.
func (tr *Tracker) Reset() {
	tr.tracks = nil
}
