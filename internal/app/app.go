// Package app wires the detection pipeline together: it consumes detector
// output from the transport, drives one reasoning engine per frame source,
// persists emitted violations, and publishes annotated results for the
// dashboard.
package app

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/detect"
	"github.com/aymanhs/pizzatrack/internal/engine"
	"github.com/aymanhs/pizzatrack/internal/store"
	"github.com/aymanhs/pizzatrack/internal/transport"
)

// DefaultSource names the engine session used by messages that do not carry
// a source of their own.
const DefaultSource = "default"

// Publisher sends result messages downstream. Satisfied by
// *transport.Client.
type Publisher interface {
	Publish(queue string, body []byte) error
}

// Config holds the pipeline configuration.
type Config struct {
	Store         *store.Store
	ROIs          []detect.ROI
	Engine        engine.Config
	ViolationsDir string
	ResultsQueue  string
	Logger        logrus.FieldLogger
}

// App owns the per-source engines and the processing loop. Frames for one
// source are always handled on the single consumer goroutine; the mutex only
// guards snapshot reads from the HTTP side against engine writes.
type App struct {
	cfg Config
	log logrus.FieldLogger
	pub Publisher

	// OnResult, when set, receives every result message after publishing.
	// The websocket hub hangs off this.
	OnResult func(*transport.ResultMessage)

	mu         sync.RWMutex
	engines    map[string]*engine.Engine
	violations map[string]int
}

// New creates an App. The ROI set applies to every source's session.
func New(cfg Config, pub Publisher) (*App, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	// Fail now rather than on the first frame.
	if _, err := engine.New(cfg.ROIs, cfg.Engine, cfg.Logger); err != nil {
		return nil, err
	}

	return &App{
		cfg:        cfg,
		log:        cfg.Logger,
		pub:        pub,
		engines:    make(map[string]*engine.Engine),
		violations: make(map[string]int),
	}, nil
}

// engineFor returns the engine for a source, creating it on first use.
// Callers must hold the write lock.
func (a *App) engineFor(source string) *engine.Engine {
	if source == "" {
		source = DefaultSource
	}
	if e, ok := a.engines[source]; ok {
		return e
	}

	// ROIs were validated in New; a second failure here is impossible.
	e, _ := engine.New(a.cfg.ROIs, a.cfg.Engine, a.log.WithField("source", source))
	a.engines[source] = e
	a.log.WithField("source", source).Info("session started")
	return e
}

// Snapshot returns the active tracks for a source, for the display API.
func (a *App) Snapshot(source string) []engine.TrackView {
	if source == "" {
		source = DefaultSource
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.engines[source]
	if !ok {
		return nil
	}
	return e.Snapshot()
}

// Sources lists the frame sources seen so far.
func (a *App) Sources() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]string, 0, len(a.engines))
	for s := range a.engines {
		out = append(out, s)
	}
	return out
}

// ViolationCount returns the running violation count for a source.
func (a *App) ViolationCount(source string) int {
	if source == "" {
		source = DefaultSource
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.violations[source]
}

// Reset tears down the session for a source. The next frame starts a fresh
// engine with new track IDs.
func (a *App) Reset(source string) {
	if source == "" {
		source = DefaultSource
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if e, ok := a.engines[source]; ok {
		e.Reset()
		delete(a.engines, source)
		a.log.WithField("source", source).Info("session reset")
	}
}

func (a *App) publish(msg *transport.ResultMessage) {
	body, err := json.Marshal(msg)
	if err != nil {
		a.log.WithError(err).Error("failed to marshal result message")
		return
	}
	if a.pub != nil {
		if err := a.pub.Publish(a.cfg.ResultsQueue, body); err != nil {
			a.log.WithError(err).Error("failed to publish result message")
		}
	}
	if a.OnResult != nil {
		a.OnResult(msg)
	}
}
