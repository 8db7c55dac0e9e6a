package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"breeze/internal/infrastructure/logging"
	"breeze/internal/notify"
	"breeze/internal/services"
	"breeze/internal/types"
)

// Frame types
const (
	FrameHello        = "hello"
	FrameChange       = "change"
	FrameNotification = "notification"
	FrameEvent        = "event"
	FrameEvents       = "events"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Frame is one websocket message in either direction
type Frame struct {
	Type    string      `json:"type"`
	Data    interface{} `json:"data"`
	EventID string      `json:"event_id,omitempty"`
}

type inboundFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// subscriber is one connected browser. filter empty means every frame type.
type subscriber struct {
	conn   *websocket.Conn
	send   chan []byte
	filter map[string]bool
	once   sync.Once
}

func (s *subscriber) wants(frameType string) bool {
	return len(s.filter) == 0 || s.filter[frameType]
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans session changes and notifications out to websocket clients and
// feeds the input events they send back into a recorder.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logging.Logger

	mu      sync.RWMutex
	clients map[*subscriber]struct{}
	record  func(types.RawEvent)
	closed  bool
}

func NewHub(logger logging.Logger) *Hub {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*subscriber]struct{}),
	}
}

// SetRecorder sets where inbound event frames go
func (h *Hub) SetRecorder(record func(types.RawEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record = record
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a frame for every interested client. Clients whose
// buffer is full are dropped.
func (h *Hub) Broadcast(frameType string, data interface{}) {
	payload, err := json.Marshal(Frame{Type: frameType, Data: data, EventID: uuid.NewString()})
	if err != nil {
		logging.LogError(h.logger, err, "Broadcast", map[string]interface{}{"type": frameType})
		return
	}

	var slow []*subscriber
	h.mu.RLock()
	for c := range h.clients {
		if !c.wants(frameType) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("Dropping slow websocket client", "remote", c.conn.RemoteAddr().String())
		h.remove(c)
	}
}

// Publish forwards a session change; it is registered with Session.OnChange
func (h *Hub) Publish(c services.Change) {
	h.Broadcast(FrameChange, c)
}

// Alert makes the hub a notification sink
func (h *Hub) Alert(_ context.Context, n notify.Notification) error {
	h.Broadcast(FrameNotification, n)
	return nil
}

func (h *Hub) add(c *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) remove(c *subscriber) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func parseFilter(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	filter := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			filter[t] = true
		}
	}
	return filter
}

// ServeWS upgrades the request and runs the client until it disconnects.
// hello, when set, is the first frame the client receives.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, hello interface{}) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "Server is shutting down"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.Warn("Websocket upgrade failed", "error", err.Error(), "remote", r.RemoteAddr)
		return
	}

	c := &subscriber{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		filter: parseFilter(r.URL.Query().Get("types")),
	}
	if hello != nil {
		if payload, err := json.Marshal(Frame{Type: FrameHello, Data: hello, EventID: uuid.NewString()}); err == nil {
			c.send <- payload
		}
	}
	if !h.add(c) {
		conn.Close()
		return
	}

	h.logger.Debug("Websocket client connected", "remote", conn.RemoteAddr().String(), "clients", h.Clients())
	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) readPump(c *subscriber) {
	defer func() {
		h.remove(c)
		h.logger.Debug("Websocket client disconnected", "remote", c.conn.RemoteAddr().String())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket read failed", "error", err.Error())
			}
			return
		}
		h.handleInbound(msg)
	}
}

func (h *Hub) handleInbound(msg []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		h.logger.Debug("Ignoring malformed websocket frame", "error", err.Error())
		return
	}

	var events []types.RawEvent
	switch frame.Type {
	case FrameEvent:
		var ev types.RawEvent
		if err := json.Unmarshal(frame.Data, &ev); err != nil {
			h.logger.Debug("Ignoring malformed event frame", "error", err.Error())
			return
		}
		events = append(events, ev)
	case FrameEvents:
		if err := json.Unmarshal(frame.Data, &events); err != nil {
			h.logger.Debug("Ignoring malformed events frame", "error", err.Error())
			return
		}
	default:
		h.logger.Debug("Ignoring websocket frame", "type", frame.Type)
		return
	}

	h.mu.RLock()
	record := h.record
	h.mu.RUnlock()
	if record == nil {
		return
	}
	for _, ev := range events {
		record(ev)
	}
}

func (h *Hub) writePump(c *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*subscriber, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
