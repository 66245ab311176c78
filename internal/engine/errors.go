package engine

import "errors"

// ErrNoROI is returned when an engine is created without any region of
// interest. No violation can ever be evaluated without at least one ROI, so
// this is fatal at session start.
var ErrNoROI = errors.New("no ROI configured")

// ErrOutOfOrderFrame is returned when a frame arrives with a number lower
// than an already processed frame. The frame is dropped; the session
// continues.
var ErrOutOfOrderFrame = errors.New("out of order frame")

// ErrDuplicateFrame is returned when a frame number is resubmitted. The
// duplicate is dropped idempotently so retrying callers cannot
// double-increment track evidence.
var ErrDuplicateFrame = errors.New("duplicate frame")
