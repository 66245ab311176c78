package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/aymanhs/pizzatrack/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // dashboard runs on a different origin in compose
	},
}

// Hub broadcasts annotated result frames to connected websocket clients and
// keeps the most recent frame for the MJPEG fallback stream.
type Hub struct {
	log     logrus.FieldLogger
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
	latest  []byte // most recent annotated JPEG
}

// NewHub creates a Hub.
func NewHub(log logrus.FieldLogger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:     log,
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP handles websocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()
	h.log.Debug("websocket client connected")

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		h.log.Debug("websocket client disconnected")
	}()

	// Keep the connection alive by draining client messages.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// Broadcast fans a result message out to every connected client and records
// the annotated frame for the MJPEG stream. Send failures drop the client;
// a stalled dashboard must not block the pipeline.
func (h *Hub) Broadcast(msg *transport.ResultMessage) {
	payload, err := json.Marshal(map[string]any{
		"type":               "frame",
		"source":             msg.Source,
		"frame_number":       msg.FrameNumber,
		"timestamp":          msg.Timestamp,
		"frame_data":         msg.FrameData,
		"violation_detected": msg.ViolationDetected,
		"violation_count":    msg.ViolationCount,
		"violations":         msg.Violations,
		"tracks":             msg.Tracks,
	})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal broadcast frame")
		return
	}

	var latest []byte
	if msg.FrameData != "" {
		if decoded, err := base64.StdEncoding.DecodeString(msg.FrameData); err == nil {
			latest = decoded
		}
	}

	h.mu.Lock()
	if latest != nil {
		h.latest = latest
	}
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
	h.mu.Unlock()
}

// LatestFrame returns the most recent annotated JPEG, or nil.
func (h *Hub) LatestFrame() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected websocket clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
