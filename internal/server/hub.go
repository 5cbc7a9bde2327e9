package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tridinhbui/finpartner-ai/internal/controller"
	"github.com/tridinhbui/finpartner-ai/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Hub fans state-change events out to connected websocket clients.
type Hub struct {
	mu     sync.RWMutex
	conns  map[*wsConn]struct{}
	logger logging.Logger

	upgrader websocket.Upgrader
}

type wsConn struct {
	socket *websocket.Conn
	send   chan []byte
	once   sync.Once
	done   chan struct{}
}

// NewHub constructs an event hub.
func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		conns:  make(map[*wsConn]struct{}),
		logger: logging.OrNop(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// BroadcastEvent pushes an event to every connected client. Slow
// clients are dropped rather than blocking the caller.
func (h *Hub) BroadcastEvent(ev controller.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Hub: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.conns {
		select {
		case conn.send <- payload:
		default:
			h.logger.Warn("Hub: dropping slow websocket client")
			conn.close()
		}
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Serve upgrades the request and streams events until the client
// disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Hub: websocket upgrade failed: %v", err)
		return
	}

	conn := &wsConn{
		socket: socket,
		send:   make(chan []byte, 32),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Hub: client connected, total=%d", h.ClientCount())

	go h.writeLoop(conn)
	h.readLoop(conn)

	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.close()
	_ = socket.Close()
	h.logger.Debug("Hub: client disconnected, total=%d", h.ClientCount())
}

// CloseAll disconnects every client, used during shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.close()
		_ = conn.socket.Close()
		delete(h.conns, conn)
	}
}

func (h *Hub) readLoop(conn *wsConn) {
	conn.socket.SetReadLimit(4096)
	_ = conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	conn.socket.SetPongHandler(func(string) error {
		return conn.socket.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		// Clients don't send application data; the read loop only
		// surfaces disconnects and pong frames.
		if _, _, err := conn.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-conn.send:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.done:
			_ = conn.socket.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.socket.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}

func (c *wsConn) close() {
	c.once.Do(func() { close(c.done) })
}
