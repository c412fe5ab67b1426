package broadcast

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"

	"github.com/gofiber/contrib/websocket"
)

// ErrHubClosed is returned when registering with a hub that has shut down.
var ErrHubClosed = errors.New("hub is closed")

// Conn is the subset of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a connected WebSocket client.
type Client struct {
	ID       string
	Nickname string
	conn     Conn
	send     chan []byte
	ready    chan struct{}
	stopped  chan struct{}
}

// NewClient creates a client with an outbound buffer of the given size.
func NewClient(id, nickname string, conn Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		ID:       id,
		Nickname: nickname,
		conn:     conn,
		send:     make(chan []byte, buffer),
		ready:    make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// writePump drains the send buffer onto the connection until the buffer is closed.
func (c *Client) writePump() {
	defer close(c.stopped)

	failed := false
	for frame := range c.send {
		if failed {
			continue
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Printf("[hub] Failed to send to client %s: %v", c.ID, err)
			failed = true
		}
	}
}

// Hub owns the transport handles of connected clients.
//
// Registration changes are serialized through Run. Sends never block: each
// client has a buffered queue drained by its own write pump, and a frame that
// does not fit is dropped.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	dropped    atomic.Int64
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop. It accepts a context for graceful shutdown.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Println("[hub] Shutting down...")
			h.closeAllClients()
			close(h.done)
			return
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		}
	}
}

// Wait blocks until the hub has stopped.
func (h *Hub) Wait() {
	<-h.done
}

// closeAllClients closes every client queue and connection.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.clients {
		close(client.send)
		_ = client.conn.Close()
	}
	h.clients = make(map[string]*Client)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	defer close(client.ready)

	if old, exists := h.clients[client.ID]; exists {
		close(old.send)
	}
	h.clients[client.ID] = client
	go client.writePump()
	log.Printf("[hub] Client %s (%s) registered", client.ID, client.Nickname)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[client.ID]; ok && current == client {
		delete(h.clients, client.ID)
		close(client.send)
		log.Printf("[hub] Client %s (%s) unregistered", client.ID, client.Nickname)
	}
}

// Register adds a client to the hub and starts its write pump.
// It returns once the client can receive frames.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
	case <-h.done:
		return ErrHubClosed
	}
	<-client.ready
	return nil
}

// Unregister removes a client from the hub and waits for its pending frames to be written.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
	<-client.stopped
}

// Send queues a frame for one client without blocking.
// It reports whether the frame was queued.
func (h *Hub) Send(connID string, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case client.send <- frame:
		return true
	default:
		h.dropped.Add(1)
		log.Printf("[hub] Send buffer full for client %s, frame dropped", connID)
		return false
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of frames dropped because a client buffer was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}
