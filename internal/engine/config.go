package engine

// Config holds the tunable thresholds for the violation detection engine.
// All frame-count values assume the session's native frame rate; the defaults
// are calibrated for 30 fps footage.
type Config struct {
	// MinConfidence is the detector confidence floor. Detections below it are
	// discarded before any spatial reasoning (default: 0.4).
	MinConfidence float64

	// MatchIoU is the minimum IoU between a track's last box and a new hand
	// detection for the two to be matched (default: 0.3).
	MatchIoU float64

	// OverlapThreshold is the minimum containment ratio for a hand to count
	// as touching an ROI, scooper, or pizza (default: 0.1).
	OverlapThreshold float64

	// Patience is how many consecutive missed frames a track survives before
	// eviction (default: 30, about one second of video).
	Patience int

	// CooldownFrames is the minimum frame gap between two emitted violations
	// for the same track (default: 60, about two seconds of video).
	CooldownFrames int64

	// MergeContainment is the containment ratio above which two violations
	// emitted in the same frame by different tracks are treated as one
	// physical event (default: 0.8).
	MergeContainment float64
}

// DefaultConfig returns a Config with the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence:    0.4,
		MatchIoU:         0.3,
		OverlapThreshold: 0.1,
		Patience:         30,
		CooldownFrames:   60,
		MergeContainment: 0.8,
	}
}
