package notification

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cafe-pos/internal/logger"
)

const (
	sendBuffer   = 16
	writeTimeout = 5 * time.Second
)

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub serves the ready push channel. Every connected socket gets every
// broadcast; a client whose buffer is full is dropped.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// Announcers run on the shop LAN under any host name.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket_upgrade_failed", "Failed to upgrade push connection", logger.RequestIDFromContext(r.Context()), map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("push_client_connected", "Push client connected", logger.RequestIDFromContext(r.Context()), map[string]interface{}{
		"remote_addr": r.RemoteAddr,
		"clients":     total,
	})

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop only watches for the peer going away.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues payload for every client and returns how many got it.
func (h *Hub) Broadcast(payload []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	sent := 0
	for c := range h.clients {
		select {
		case c.send <- payload:
			sent++
		default:
			delete(h.clients, c)
			close(c.send)
			h.logger.Warn("push_client_dropped", "Dropping slow push client", "", nil)
		}
	}
	return sent
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
