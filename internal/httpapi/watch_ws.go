package httpapi

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The demo page may be served from a different origin than the API.
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// updateHub fans transcript-change notifications out to every browser
// watching a session, so a second tab re-renders without polling.
type updateHub struct {
	logger *log.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newUpdateHub(logger *log.Logger) *updateHub {
	return &updateHub{
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

func (h *updateHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *updateHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// broadcast sends v to every watcher; connections that fail to write are
// dropped.
func (h *updateHub) broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(v); err != nil {
			h.logger.Printf("watch: dropping slow watcher: %v", err)
			_ = conn.Close()
			delete(h.conns, conn)
		}
	}
}

// closeAll disconnects every watcher; used when a session is deleted or
// evicted.
func (h *updateHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		_ = conn.Close()
		delete(h.conns, conn)
	}
}

func (h *updateHub) watcherCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// handleWatch upgrades to a WebSocket that receives a notification every
// time a submission commits a new message to the session.
func (r *Router) handleWatch(w http.ResponseWriter, req *http.Request) {
	entry, ok := r.lookupSession(w, req)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Printf("watch: upgrade failed: %v", err)
		return
	}

	entry.hub.add(conn)
	defer func() {
		entry.hub.remove(conn)
		_ = conn.Close()
	}()

	// The client never sends anything meaningful; block on reads until the
	// connection goes away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
