// internal/realtime/hub.go
package realtime

import (
	"log/slog"
	"sync"
)

// Conn is a live client channel (push socket, event stream) that can be
// told to close.
type Conn interface {
	SendClose(reason string) error
}

// Hub tracks live connections by opaque id. Revocation uses it to kick a
// banned account's open channel; delivery is best-effort.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

func (h *Hub) Register(id string, c Conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

// Disconnect closes the connection with the given id and drops it from the
// hub. Unknown ids and close failures are swallowed: the session token
// deletion is what actually revokes access, the channel kill is a courtesy.
func (h *Hub) Disconnect(id, reason string) {
	if id == "" {
		return
	}
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	if err := c.SendClose(reason); err != nil {
		slog.Warn("live channel close failed", "conn_id", id, "err", err)
	}
}

// Len reports the number of registered connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
