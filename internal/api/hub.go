package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StateChange is pushed to every websocket client when a controller, the
// form or the locale changes.
type StateChange struct {
	Component string `json:"component"`
	Index     *int   `json:"index,omitempty"`
	Field     string `json:"field,omitempty"`
	State     string `json:"state,omitempty"`
	Value     string `json:"value,omitempty"`
}

const (
	writeWait      = 10 * time.Second
	clientQueueLen = 32
)

// Hub fans StateChanges out to websocket clients. A client that falls behind
// is disconnected.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	// snapshot is sent to each client right after it connects.
	snapshot func() []StateChange

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan StateChange
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Broadcast(change StateChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- change:
		default:
			h.logger.Warn("dropping slow websocket client", "remote_addr", c.conn.RemoteAddr())
			delete(h.clients, c)
			c.close()
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan StateChange, clientQueueLen)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	if h.snapshot != nil {
		for _, change := range h.snapshot() {
			select {
			case c.send <- change:
			default:
			}
		}
	}
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "remote_addr", conn.RemoteAddr())

	go h.readPump(c)
	h.writePump(c)
}

// readPump discards client messages and unregisters the client when the
// connection goes away.
func (h *Hub) readPump(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for change := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(change); err != nil {
			h.logger.Debug("websocket write failed", "error", err)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
}
