package ws

import (
	"sync"
)

type Conn interface {
	Send(data []byte) error
	Close() error
	Username() string
}

// Hub — реестр живых соединений единственной комнаты.
type Hub struct {
	mu    sync.RWMutex
	conns map[Conn]string // conn -> username
}

func NewHub() *Hub {
	return &Hub{conns: make(map[Conn]string)}
}

func (h *Hub) Add(c Conn, username string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c] = username
}

// Remove идемпотентен: повторное удаление уже убранного соединения — no-op.
func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.conns, c)
}

// ForEach обходит срез-снапшот, снятый в момент вызова: callback может
// безопасно дергать Add/Remove, не ломая обход остальных записей.
func (h *Hub) ForEach(fn func(c Conn, username string)) {
	h.mu.RLock()
	type entry struct {
		c        Conn
		username string
	}
	snapshot := make([]entry, 0, len(h.conns))
	for c, username := range h.conns {
		snapshot = append(snapshot, entry{c, username})
	}
	h.mu.RUnlock()

	for _, e := range snapshot {
		fn(e.c, e.username)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
