// Package realtime pushes lead events to connected admin consoles over
// websockets.
package realtime

import (
	"context"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/muvance-crm/internal/events"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

const defaultBuffer = 32

// Frame types written by the hub besides lead events.
const (
	FramePing = "ping"
	FramePong = "pong"
)

type controlFrame struct {
	Type string `json:"type"`
}

// Hub fans lead events out to every connected console. It implements
// events.Publisher so it can sit next to the AMQP publisher.
type Hub struct {
	logger *logging.Logger
	buffer int

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan any
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Default()
	}
	return &Hub{logger: logger, buffer: defaultBuffer, clients: make(map[*client]struct{})}
}

// Publish never blocks. A console that cannot keep up is disconnected and
// is expected to reload its snapshot.
func (h *Hub) Publish(ctx context.Context, evt events.LeadEvent) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- evt:
		default:
			h.logger.Warn("realtime: dropping slow client", "remote", c.conn.Request().RemoteAddr)
			c.close()
		}
	}
	return nil
}

// Clients returns the number of connected consoles.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request. Authentication and origin checks happen
// in middleware before this point.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv := websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h.serve,
	}
	srv.ServeHTTP(w, r)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

func (h *Hub) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan any, h.buffer), done: make(chan struct{})}
	h.register(c)
	defer h.unregister(c)
	h.logger.Info("realtime: console connected", "remote", conn.Request().RemoteAddr)

	go h.readLoop(c)

	for {
		select {
		case <-c.done:
			_ = conn.Close()
			h.logger.Info("realtime: console disconnected", "remote", conn.Request().RemoteAddr)
			return
		case frame := <-c.send:
			if err := websocket.JSON.Send(conn, frame); err != nil {
				h.logger.Debug("realtime: write failed", "error", err)
				c.close()
			}
		}
	}
}

// readLoop answers pings and notices when the peer goes away.
func (h *Hub) readLoop(c *client) {
	defer c.close()
	for {
		var frame controlFrame
		if err := websocket.JSON.Receive(c.conn, &frame); err != nil {
			return
		}
		if frame.Type != FramePing {
			continue
		}
		select {
		case c.send <- controlFrame{Type: FramePong}:
		case <-c.done:
			return
		}
	}
}
