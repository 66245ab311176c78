package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// State is the position of a track in its episode lifecycle.
type State string

const (
	// StateIdle means the track has no open episode.
	StateIdle State = "idle"
	// StateInROI means the hand is in contact with an ingredient container.
	StateInROI State = "in_roi"
	// StateHolding means the hand touched an ROI and has since withdrawn,
	// i.e. it picked up ingredient.
	StateHolding State = "holding"
)

// ViolationType is the single violation this engine detects: ingredient moved
// from a container to the product without a scooper.
const ViolationType = "no_scooper_used"

// step advances the track's state machine by one frame of evidence and
// returns a prospective violation event, or nil.
//
// Transition order per frame: enter an ROI from idle, accumulate scooper
// evidence, detect withdrawal from the ROI, then resolve product contact into
// a terminal outcome. Scooper evidence is sticky for the rest of the episode:
// a scooper confirmed in-hand is assumed to remain in-hand even when the
// detector loses the overlap between frames.
func (t *Track) step(rois []geometry.Labeled, dets map[detect.Class][]detect.Detection, frameNum int64, cfg Config, log logrus.FieldLogger) *Event {
	if t.state == StateIdle {
		hits := geometry.Overlapping(t.LastBox, rois, cfg.OverlapThreshold)
		if len(hits) == 0 {
			return nil
		}
		t.state = StateInROI
		t.roiTouchedFrame = frameNum
		t.roiLabel = hits[0].Label
		log.WithFields(logrus.Fields{
			"track": t.ID,
			"frame": frameNum,
			"roi":   t.roiLabel,
		}).Debug("hand entered ROI")
		// Fall through: scooper evidence counts from the entry frame on.
	}

	if !t.scooperSeen {
		for _, s := range dets[detect.ClassScooper] {
			if geometry.Containment(t.LastBox, s.Box) > cfg.OverlapThreshold {
				t.scooperSeen = true
				log.WithFields(logrus.Fields{
					"track": t.ID,
					"frame": frameNum,
				}).Debug("scooper confirmed in hand")
				break
			}
		}
	}

	if t.state == StateInROI {
		if hits := geometry.Overlapping(t.LastBox, rois, cfg.OverlapThreshold); len(hits) == 0 {
			t.state = StateHolding
			log.WithFields(logrus.Fields{
				"track": t.ID,
				"frame": frameNum,
				"roi":   t.roiLabel,
			}).Debug("hand left ROI holding ingredient")
		}
		return nil
	}

	// StateHolding: product contact resolves the episode.
	for _, p := range dets[detect.ClassPizza] {
		score := geometry.Containment(t.LastBox, p.Box)
		if score <= cfg.OverlapThreshold {
			continue
		}

		var ev *Event
		if t.scooperSeen {
			log.WithFields(logrus.Fields{
				"track": t.ID,
				"frame": frameNum,
				"roi":   t.roiLabel,
			}).Debug("hand reached product with scooper, cleared")
		} else {
			ev = &Event{
				TrackID:     t.ID,
				FrameNumber: frameNum,
				Type:        ViolationType,
				Confidence:  score,
				ROILabel:    t.roiLabel,
				HandBox:     t.LastBox,
				ProductBox:  p.Box,
			}
		}
		t.resetEpisode()
		return ev
	}

	return nil
}

// resetEpisode clears the track's evidence after a terminal transition or an
// eviction, returning it to idle. The same physical hand can then be tracked
// through further episodes.
func (t *Track) resetEpisode() {
	t.state = StateIdle
	t.roiTouchedFrame = -1
	t.roiLabel = ""
	t.scooperSeen = false
}
