// Package realtime pushes message and read-receipt events to connected users.
package realtime

import (
	"context"
	"log/slog"
	"sync"

	"freelancehub/internal/common"
	"freelancehub/internal/metrics"

	"github.com/google/uuid"
)

// Conn is one authenticated client connection. Events joined conversations receive are
// queued on a bounded buffer; when it is full further events are dropped for this
// connection only.
type Conn struct {
	ID       string
	Identity *common.Identity

	send   chan common.RealtimeEvent
	joined map[string]bool
	closed bool
}

// Events is closed when the connection is dropped.
func (c *Conn) Events() <-chan common.RealtimeEvent {
	return c.send
}

// Hub tracks which connections joined which conversation. It implements
// common.Broadcaster.
type Hub struct {
	verifier common.TokenVerifier
	broker   Broker
	metrics  *metrics.Metrics
	buffer   int

	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	conns map[*Conn]struct{}
}

// NewHub builds a hub. A nil broker delivers published events to local connections only.
func NewHub(verifier common.TokenVerifier, broker Broker, m *metrics.Metrics, buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		verifier: verifier,
		broker:   broker,
		metrics:  m,
		buffer:   buffer,
		rooms:    make(map[string]map[*Conn]struct{}),
		conns:    make(map[*Conn]struct{}),
	}
}

// Authenticate verifies token and registers a new connection for its identity.
// An invalid token never yields a connection.
func (h *Hub) Authenticate(token string) (*Conn, error) {
	identity, err := h.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	conn := &Conn{
		ID:       uuid.NewString(),
		Identity: identity,
		send:     make(chan common.RealtimeEvent, h.buffer),
		joined:   make(map[string]bool),
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	h.metrics.RealtimeConnections.Inc()
	slog.Debug("realtime connection authenticated",
		slog.String("conn_id", conn.ID), slog.String("user_id", identity.UserID))
	return conn, nil
}

// Join subscribes conn to conversationID. Membership of the conversation is not checked.
func (h *Hub) Join(conn *Conn, conversationID string) error {
	if conversationID == "" {
		return common.Validationf("conversation_id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if conn.closed {
		return common.Validationf("connection %s is closed", conn.ID)
	}

	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[conversationID] = room
	}
	room[conn] = struct{}{}
	conn.joined[conversationID] = true
	return nil
}

func (h *Hub) Leave(conn *Conn, conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, conversationID)
}

func (h *Hub) leaveLocked(conn *Conn, conversationID string) {
	delete(conn.joined, conversationID)
	room, ok := h.rooms[conversationID]
	if !ok {
		return
	}
	delete(room, conn)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
}

// Drop discards every join of conn and closes its event channel. Rejoining needs a new
// connection.
func (h *Hub) Drop(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn.closed {
		return
	}
	for conversationID := range conn.joined {
		h.leaveLocked(conn, conversationID)
	}
	delete(h.conns, conn)
	conn.closed = true
	close(conn.send)

	h.metrics.RealtimeConnections.Dec()
	slog.Debug("realtime connection dropped", slog.String("conn_id", conn.ID))
}

// Joined reports how many connections are joined to conversationID on this replica.
func (h *Hub) Joined(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[conversationID])
}

// Publish hands event to the broker, or delivers it locally when there is none.
// No joined connection is not an error.
func (h *Hub) Publish(ctx context.Context, conversationID string, event common.RealtimeEvent) error {
	if h.broker == nil {
		h.Deliver(conversationID, event)
		return nil
	}
	return h.broker.Publish(ctx, conversationID, event)
}

// Deliver queues event on every local connection joined to conversationID and returns
// how many accepted it.
func (h *Hub) Deliver(conversationID string, event common.RealtimeEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for conn := range h.rooms[conversationID] {
		select {
		case conn.send <- event:
			delivered++
			h.metrics.RealtimePublished.WithLabelValues(string(event.Type)).Inc()
		default:
			h.metrics.RealtimeDropped.Inc()
			slog.Warn("realtime buffer full, dropping event",
				slog.String("conn_id", conn.ID), slog.String("conversation_id", conversationID))
		}
	}
	return delivered
}
