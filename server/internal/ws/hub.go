package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalguard/signalguard/server/internal/api"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	maxReadBytes = 512

	// queueDepth is how many views a client may fall behind before it is
	// disconnected.
	queueDepth = 16

	eventView = "view"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Origins are checked by the reverse proxy.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Viewer produces the dashboard document to broadcast.
// *api.Handler implements it.
type Viewer interface {
	View() api.View
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string   `json:"event"`
	Data  api.View `json:"data"`
}

// Hub fans the dashboard view out to every connected WebSocket client.
type Hub struct {
	views    Viewer
	interval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// New creates a Hub that publishes v every interval once Run is started.
func New(v Viewer, interval time.Duration) *Hub {
	return &Hub{views: v, interval: interval, clients: make(map[*client]struct{})}
}

// Run publishes on every tick until ctx is cancelled, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case <-t.C:
			data, err := h.encode()
			if err != nil {
				slog.Error("ws: encode view", "err", err)
				continue
			}
			h.publish(data)
		}
	}
}

// ServeHTTP upgrades the request, queues the current view for the new client
// and serves it until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return // the upgrader already replied
	}
	c := &client{conn: conn, queue: make(chan []byte, queueDepth)}
	if data, err := h.encode(); err == nil {
		c.queue <- data
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	defer h.remove(c)

	go c.writeLoop()
	c.readLoop()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) encode() ([]byte, error) {
	return json.Marshal(Message{Event: eventView, Data: h.views.View()})
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

// remove closes c's queue exactly once. Queues are only written under the
// read lock, so a close never races a send.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.queue)
	}
}

func (h *Hub) publish(data []byte) {
	var lagging []*client
	h.mu.RLock()
	for c := range h.clients {
		if !c.offer(data) {
			lagging = append(lagging, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range lagging {
		slog.Debug("ws: disconnecting lagging client", "remote", c.conn.RemoteAddr().String())
		h.remove(c)
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.queue)
	}
}

type client struct {
	conn  *websocket.Conn
	queue chan []byte
}

// offer queues data without blocking and reports whether it fit.
func (c *client) offer(data []byte) bool {
	select {
	case c.queue <- data:
		return true
	default:
		return false
	}
}

// writeLoop drains the queue to the socket and keeps the peer alive with
// pings. A closed queue sends a close frame.
func (c *client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client frames, extends the deadline on pong and returns
// when the connection fails.
func (c *client) readLoop() {
	defer c.conn.Close()
	c.conn.SetReadLimit(maxReadBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
