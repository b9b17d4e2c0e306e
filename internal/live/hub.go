// Package live streams insertion queue activity to WebSocket clients.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/dsjohal14/cinestack/internal/libs/jobs"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// StatusSource reports the current queue snapshot
type StatusSource interface {
	Status() jobs.Snapshot
}

// Message is one update pushed to clients. Outcome is nil for the initial
// message sent on connect.
type Message struct {
	Snapshot jobs.Snapshot `json:"snapshot"`
	Outcome  *jobs.Outcome `json:"outcome,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub tracks connected clients and fans out queue updates
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	closed   bool
	source   StatusSource
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// NewHub creates a hub reporting snapshots from source
func NewHub(source StatusSource, logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		source:  source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request and streams updates until the client leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan Message, sendBuffer)}
	c.send <- Message{Snapshot: h.source.Status()}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("websocket client connected")

	go h.writePump(c)
	h.readPump(c)
}

// Publish sends an outcome and the current snapshot to every client. It
// never blocks; clients that fall behind are disconnected. It satisfies
// jobs.OutcomeHook.
func (h *Hub) Publish(o jobs.Outcome) {
	msg := Message{Snapshot: h.source.Status(), Outcome: &o}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.removeLocked(c)
			h.logger.Warn().Msg("websocket client too slow, disconnected")
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

// removeLocked unregisters c and closes its send channel, which stops the
// write pump. Caller holds h.mu.
func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", count).Msg("websocket client disconnected")
}

// readPump discards client messages and notices disconnects
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only writer on c.conn
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Debug().Err(err).Msg("websocket write failed")
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
