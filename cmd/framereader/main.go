// Command framereader reads a video file and publishes its frames to the
// frame queue, where the external detector picks them up. It paces
// publishing to the video's native frame rate so downstream services see a
// realistic feed.
package main

import (
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/annotate"
	"github.com/aymanhs/pizzatrack/internal/config"
	"github.com/aymanhs/pizzatrack/internal/transport"
	"github.com/aymanhs/pizzatrack/internal/video"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if cfg.VideoPath == "" {
		log.Fatal("VIDEO_PATH is required")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err == nil {
		log.SetLevel(level)
	}

	source := os.Getenv("FRAME_SOURCE")
	if source == "" {
		source = "default"
	}

	mq, err := transport.Dial(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to AMQP broker")
	}
	defer mq.Close()

	if err := mq.DeclareQueue(cfg.FrameQueue); err != nil {
		log.WithError(err).Fatal("failed to declare frame queue")
	}

	src := video.NewFileSource(cfg.VideoPath)
	if err := src.Open(); err != nil {
		log.WithError(err).Fatalf("failed to open video %s", cfg.VideoPath)
	}
	defer src.Close()

	fps := src.FPS()
	if fps <= 0 {
		fps = 30
	}
	interval := time.Duration(float64(time.Second) / fps)
	log.WithFields(logrus.Fields{
		"video":  cfg.VideoPath,
		"fps":    fps,
		"frames": src.TotalFrames(),
		"source": source,
	}).Info("publishing frames")

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var frameNumber int64
	for {
		select {
		case sig := <-sigc:
			log.WithField("signal", sig.String()).Info("shutting down")
			return
		case <-ticker.C:
		}

		mat, err := src.ReadFrame()
		if err != nil {
			if errors.Is(err, video.ErrEndOfStream) {
				log.WithField("frames", frameNumber).Info("video exhausted")
				return
			}
			log.WithError(err).Fatal("failed to read frame")
		}

		encoded, err := annotate.Encode(*mat)
		cols, rows := mat.Cols(), mat.Rows()
		mat.Close()
		if err != nil {
			log.WithError(err).WithField("frame", frameNumber).Warn("failed to encode frame, skipping")
			frameNumber++
			continue
		}

		msg := transport.FrameMessage{
			Source:      source,
			FrameNumber: frameNumber,
			Timestamp:   time.Now().UTC(),
			FrameData:   encoded,
			Width:       cols,
			Height:      rows,
		}
		body, err := json.Marshal(msg)
		if err != nil {
			log.WithError(err).Fatal("failed to marshal frame message")
		}
		if err := mq.Publish(cfg.FrameQueue, body); err != nil {
			log.WithError(err).Fatal("failed to publish frame")
		}

		frameNumber++
		if frameNumber%100 == 0 {
			log.WithField("frame", frameNumber).Debug("frames published")
		}
	}
}
