// Package realtime carries the revision loop over WebSocket connections.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Hub tracks open connections per revision session.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[*websocket.Conn]struct{}),
	}
}

// Register adds a connection for a session.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[sessionID]
	if !ok {
		conns = make(map[*websocket.Conn]struct{})
		h.active[sessionID] = conns
	}
	conns[conn] = struct{}{}
	slog.Debug("Feedback socket registered", "session_id", sessionID, "connections", len(conns))
}

// Unregister removes a connection for a session.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.active[sessionID]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.active, sessionID)
	}
}

// Count returns the number of open connections for a session.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[sessionID])
}

// CloseSession closes every connection of a session. It is registered as the
// session store's removal callback.
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	conns := h.active[sessionID]
	delete(h.active, sessionID)
	h.mu.Unlock()

	for conn := range conns {
		_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	if len(conns) > 0 {
		slog.Info("Feedback sockets closed", "session_id", sessionID, "count", len(conns))
	}
}
