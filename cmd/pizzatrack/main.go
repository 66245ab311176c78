package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/app"
	"github.com/aymanhs/pizzatrack/internal/config"
	"github.com/aymanhs/pizzatrack/internal/server"
	"github.com/aymanhs/pizzatrack/internal/store"
	"github.com/aymanhs/pizzatrack/internal/transport"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithError(err).Warnf("invalid log level %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	rois, err := config.LoadROIs(cfg.ROIPath)
	if err != nil {
		log.WithError(err).Fatalf("failed to load ROI definitions from %s", cfg.ROIPath)
	}
	log.WithField("count", len(rois)).Info("loaded ROI definitions")

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.WithError(err).Fatal("failed to create data directory")
		}
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize store")
	}
	defer st.Close()

	mq, err := transport.Dial(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to AMQP broker")
	}
	defer mq.Close()

	for _, queue := range []string{cfg.DetectionQueue, cfg.ResultsQueue} {
		if err := mq.DeclareQueue(queue); err != nil {
			log.WithError(err).Fatal("failed to declare queue")
		}
	}

	pipeline, err := app.New(app.Config{
		Store:         st,
		ROIs:          rois,
		Engine:        cfg.Engine,
		ViolationsDir: cfg.ViolationsDir,
		ResultsQueue:  cfg.ResultsQueue,
		Logger:        log,
	}, mq)
	if err != nil {
		log.WithError(err).Fatal("failed to build pipeline")
	}

	hub := server.NewHub(log)
	pipeline.OnResult = hub.Broadcast

	deliveries, err := mq.Consume(cfg.DetectionQueue)
	if err != nil {
		log.WithError(err).Fatal("failed to start consuming detections")
	}

	stop := make(chan struct{})
	go pipeline.Run(deliveries, stop)

	srv := server.New(server.Config{
		StaticDir: findWebDir(),
		Store:     st,
		Tracks:    pipeline,
		Hub:       hub,
		Logger:    log,
	})

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("dashboard server listening")
		errc <- srv.ListenAndServe(cfg.HTTPAddr)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		log.WithField("signal", sig.String()).Info("shutting down")
		close(stop)
	case err := <-errc:
		log.WithError(err).Error("dashboard server failed")
		close(stop)
	}
}

// findWebDir searches for the dashboard's static files in common locations.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
