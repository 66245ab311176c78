package engine

import (
	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/geometry"
)

// Deduplicator suppresses repeated emissions for the same physical event. A
// terminal transition fires once by construction, but detector re-detection
// noise can surface one physical contact as two tracks; the per-track
// cooldown and the same-frame overlap merge are the second line of defense.
type Deduplicator struct {
	cfg      Config
	log      logrus.FieldLogger
	cooldown map[string]int64 // track ID -> frame before which emissions are suppressed
}

// NewDeduplicator creates a Deduplicator with the given cooldown window.
func NewDeduplicator(cfg Config, log logrus.FieldLogger) *Deduplicator {
	return &Deduplicator{
		cfg:      cfg,
		log:      log,
		cooldown: make(map[string]int64),
	}
}

// Filter returns the events that survive cooldown and same-frame merging.
// Surviving events start a new cooldown window for their track.
func (d *Deduplicator) Filter(events []*Event, frameNum int64) []*Event {
	var out []*Event
	for _, ev := range events {
		if until, ok := d.cooldown[ev.TrackID]; ok && frameNum < until {
			d.log.WithFields(logrus.Fields{
				"track": ev.TrackID,
				"frame": frameNum,
				"until": until,
			}).Debug("violation suppressed by cooldown")
			continue
		}

		// Near-identical concurrent violations from different tracks whose
		// hand boxes overlap this strongly are one physical event.
		merged := false
		for _, kept := range out {
			if geometry.Containment(ev.HandBox, kept.HandBox) > d.cfg.MergeContainment {
				merged = true
				d.log.WithFields(logrus.Fields{
					"track": ev.TrackID,
					"into":  kept.TrackID,
					"frame": frameNum,
				}).Debug("violation merged with concurrent event")
				break
			}
		}
		if merged {
			// Still start the cooldown so the shadowing track cannot re-emit
			// the same contact a few frames later.
			d.cooldown[ev.TrackID] = frameNum + d.cfg.CooldownFrames
			continue
		}

		d.cooldown[ev.TrackID] = frameNum + d.cfg.CooldownFrames
		out = append(out, ev)
	}
	return out
}

// Forget drops the cooldown marker for a track, typically after eviction.
func (d *Deduplicator) Forget(trackID string) {
	delete(d.cooldown, trackID)
}

// Reset clears all cooldown state.
func (d *Deduplicator) Reset() {
	d.cooldown = make(map[string]int64)
}
