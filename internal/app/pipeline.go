package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"github.com/aymanhs/pizzatrack/internal/annotate"
	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/engine"
	"github.com/aymanhs/pizzatrack/internal/geometry"
	"github.com/aymanhs/pizzatrack/internal/metrics"
	"github.com/aymanhs/pizzatrack/internal/store"
	"github.com/aymanhs/pizzatrack/internal/transport"
)

// Run consumes detection messages until the delivery channel closes or stop
// is signaled. Every delivery is acked, including failed ones: a frame that
// cannot be processed now will never become processable, and redelivery
// would only wedge the queue.
func (a *App) Run(deliveries <-chan amqp.Delivery, stop <-chan struct{}) {
	a.log.Info("detection pipeline started")
	for {
		select {
		case <-stop:
			a.log.Info("detection pipeline stopped")
			return
		case d, ok := <-deliveries:
			if !ok {
				a.log.Warn("delivery channel closed")
				return
			}
			if _, err := a.HandleMessage(d.Body); err != nil {
				a.log.WithError(err).Warn("frame not processed")
			}
			d.Ack(false)
		}
	}
}

// HandleMessage processes one detection message end to end and returns the
// result that was published.
func (a *App) HandleMessage(body []byte) (*transport.ResultMessage, error) {
	var msg transport.DetectionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		metrics.FramesDropped.WithLabelValues("decode_error").Inc()
		return nil, fmt.Errorf("decode detection message: %w", err)
	}

	source := msg.Source
	if source == "" {
		source = DefaultSource
	}
	frame := msg.Frame(a.log)

	a.mu.Lock()
	e := a.engineFor(source)

	start := time.Now()
	events, err := e.Process(frame)
	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.mu.Unlock()
		switch {
		case errors.Is(err, engine.ErrDuplicateFrame):
			metrics.FramesDropped.WithLabelValues("duplicate").Inc()
		case errors.Is(err, engine.ErrOutOfOrderFrame):
			metrics.FramesDropped.WithLabelValues("out_of_order").Inc()
		default:
			metrics.FramesDropped.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	tracks := e.Snapshot()
	rois := e.ROIs()
	a.violations[source] += len(events)
	count := a.violations[source]

	metrics.FramesProcessed.Inc()
	metrics.ActiveTracks.Set(float64(len(tracks)))
	if len(events) > 0 {
		metrics.ViolationsEmitted.Add(float64(len(events)))
	}
	a.mu.Unlock()

	result := &transport.ResultMessage{
		Source:            msg.Source,
		FrameNumber:       msg.FrameNumber,
		Timestamp:         msg.Timestamp,
		ViolationDetected: len(events) > 0,
		ViolationCount:    count,
		Violations:        events,
		Tracks:            tracks,
	}

	// Annotate when the message carries image data; evidence JPEGs are only
	// written for frames that resolved a violation.
	var framePath string
	if msg.FrameData != "" {
		annotated, path, err := a.annotateFrame(&msg, frame, rois, tracks, count, len(events) > 0)
		if err != nil {
			a.log.WithError(err).WithField("frame", msg.FrameNumber).Warn("frame annotation failed")
		} else {
			result.FrameData = annotated
			framePath = path
		}
	}

	for i := range events {
		if err := a.persistViolation(source, &events[i], framePath); err != nil {
			a.log.WithError(err).WithField("frame", msg.FrameNumber).Error("failed to persist violation")
		}
	}

	a.publish(result)
	return result, nil
}

// annotateFrame draws the overlay and, for violation frames, writes the
// annotated JPEG to the violations directory. It returns the annotated frame
// as base64 and the evidence path, if any.
func (a *App) annotateFrame(msg *transport.DetectionMessage, frame *detect.Frame, rois []geometry.Labeled, tracks []engine.TrackView, count int, hasViolation bool) (string, string, error) {
	img, err := annotate.Decode(msg.FrameData)
	if err != nil {
		return "", "", err
	}
	defer img.Close()

	annotate.Draw(&img, rois, frame, tracks, count, hasViolation)

	encoded, err := annotate.Encode(img)
	if err != nil {
		return "", "", err
	}

	var framePath string
	if hasViolation && a.cfg.ViolationsDir != "" {
		if err := os.MkdirAll(a.cfg.ViolationsDir, 0755); err != nil {
			return encoded, "", err
		}
		framePath = filepath.Join(a.cfg.ViolationsDir,
			fmt.Sprintf("violation_%d_%s.jpg", msg.FrameNumber, time.Now().Format("20060102_150405")))
		if err := annotate.SaveJPEG(framePath, img); err != nil {
			return encoded, "", err
		}
	}

	return encoded, framePath, nil
}

// persistViolation writes one emitted event to the store.
func (a *App) persistViolation(source string, ev *engine.Event, framePath string) error {
	if a.cfg.Store == nil {
		return nil
	}

	metadata, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return a.cfg.Store.Violations().Create(&store.Violation{
		ID:          uuid.New().String(),
		TrackID:     ev.TrackID,
		Source:      source,
		FrameNumber: ev.FrameNumber,
		Timestamp:   ev.Timestamp,
		Type:        ev.Type,
		Confidence:  ev.Confidence,
		FramePath:   framePath,
		Metadata:    metadata,
	})
}
