// Package relay bridges the backend events channel to live dashboard
// clients over websockets. Fan-out is best effort: every connected
// client gets every event, nothing is stored, and a slow client is
// skipped rather than allowed to stall the rest.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Abhishekkr6/teampulse-sub000/internal/bootstrap/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(_ *http.Request) bool {
		// The dashboard may be served from a different origin in local
		// setups; the websocket carries no credentials or commands.
		return true
	},
}

type Hub struct {
	ctx context.Context

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

func NewHub(ctx context.Context) *Hub {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Hub{
		ctx:     logging.WithAttrs(ctx, slog.String("component", "relay.hub")),
		clients: make(map[*client]struct{}),
	}
}

// Broadcast fans one events-channel message out to every connected
// client. Invalid JSON never reaches clients. A client whose send buffer
// is full has this message dropped; the next full fetch catches it up.
func (h *Hub) Broadcast(data []byte) {
	if !json.Valid(data) {
		logging.Warn(h.ctx, "dropping non-JSON event", slog.Int("bytes", len(data)))
		return
	}

	for _, c := range h.snapshot() {
		select {
		case c.send <- data:
		default:
			logging.Warn(h.ctx, "client send buffer full, dropping event")
		}
	}
}

// ServeHTTP upgrades one dashboard connection and pumps events to it
// until the peer goes away. Clients reconnect on their own after a fixed
// delay; missed events are not replayed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(h.ctx, "websocket upgrade failed", slog.String("remote", r.RemoteAddr))
		return
	}

	c := newClient(conn)
	if !h.register(c) {
		_ = conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump(h.ctx)
	c.readUntilClosed()
}

// Close disconnects all clients and rejects future ones.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	logging.Info(h.ctx, "client connected", slog.Int("total", len(h.clients)))
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	if present {
		c.close()
		logging.Info(h.ctx, "client disconnected", slog.Int("total", total))
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}
