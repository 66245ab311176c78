// Package server provides the HTTP dashboard for the pizzatrack violation
// detection service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/server/api"
	"github.com/aymanhs/pizzatrack/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	Tracks    api.TrackSource
	Hub       *Hub
	Logger    logrus.FieldLogger
}

// Server serves the dashboard API, the metrics endpoint, and the live
// streams.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.Handler())

	if s.config.Store != nil {
		violationsHandler := api.NewViolationsHandler(s.config.Store)
		s.mux.Handle("/api/violations", violationsHandler)
		s.mux.Handle("/api/violations/", violationsHandler)
		s.mux.Handle("/api/stats", api.NewStatsHandler(s.config.Store))
	}

	if s.config.Tracks != nil {
		s.mux.Handle("/api/tracks", api.NewTracksHandler(s.config.Tracks))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/ws/stream", s.config.Hub)
		s.mux.Handle("/api/stream/mjpeg", NewStreamHandler(s.config.Hub))
	}

	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":  "ok",
		"service": "pizzatrack",
		"uptime":  time.Since(s.start).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
