package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bearcattt/scramjet/internal/infrastructure/logging"
	"github.com/bearcattt/scramjet/internal/infrastructure/monitoring"
	"github.com/bearcattt/scramjet/internal/shared/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Message is an inbound control frame.
type Message struct {
	Type string `json:"type"`
}

// Handler streams sandbox activity over WebSocket connections
type Handler struct {
	hub     *events.Hub
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *events.Hub, logger *logging.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// WithMetrics adds metrics tracking to the handler.
func (h *Handler) WithMetrics(m *monitoring.Metrics) *Handler {
	h.metrics = m
	return h
}

// wsConn serializes writes: the event forwarder and the read loop's replies
// share one socket, and gorilla allows a single concurrent writer.
type wsConn struct {
	sock *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, data)
}

// HandleConnection handles WebSocket upgrade and messages. Every sandbox
// event emitted while the connection is up is forwarded as its own frame;
// the frame type is the event name.
func (h *Handler) HandleConnection(c *gin.Context) {
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer sock.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	conn := &wsConn{sock: sock}

	// Subscribe before the welcome frame so a client that has seen the
	// welcome can rely on the subscription being live.
	stream, cancel := h.hub.Subscribe()
	defer cancel()

	conn.send(map[string]interface{}{
		"type":    "system",
		"message": "connected to scramjet event stream",
	})

	go h.forward(conn, stream)

	// Listen for messages
	for {
		_, raw, err := sock.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := sonic.Unmarshal(raw, &msg); err != nil {
			h.sendError(conn, "malformed message")
			continue
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "ping":
			conn.send(map[string]interface{}{"type": "pong"})
		default:
			h.sendError(conn, "unknown message type")
		}
	}
}

// forward pushes hub events to the client until the subscription or the
// connection goes away.
func (h *Handler) forward(conn *wsConn, stream <-chan events.Event) {
	for e := range stream {
		if err := conn.send(e); err != nil {
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("out", e.Type)
		}
	}
}

func (h *Handler) sendError(conn *wsConn, msg string) error {
	return conn.send(map[string]interface{}{
		"type":      "error",
		"message":   msg,
		"timestamp": time.Now().Unix(),
	})
}
