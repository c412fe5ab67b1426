package broadcast

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/example/lobby-relay/modules/lobby"
	"github.com/go-monolith/mono"
)

// DefaultSendBuffer is the per-client outbound frame buffer.
const DefaultSendBuffer = 64

// BroadcastModule owns the websocket hub and the Broadcast Router.
type BroadcastModule struct {
	hub        *Hub
	router     *Router
	sendBuffer int
	cancelHub  context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	sendBuffer := DefaultSendBuffer
	if v := os.Getenv("LOBBY_SEND_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sendBuffer = n
		}
	}
	return &BroadcastModule{
		hub:        NewHub(),
		sendBuffer: sendBuffer,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// SetStore binds the router to the Room Store (called from main.go).
func (m *BroadcastModule) SetStore(store *lobby.Store) {
	m.router = NewRouter(m.hub, store)
}

// Start starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	if m.router == nil {
		return fmt.Errorf("room store dependency not set")
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Printf("[broadcast] Module started - WebSocket hub running (send buffer: %d)", m.sendBuffer)
	return nil
}

// Stop closes every client connection and shuts the hub down.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected, %d frames dropped",
		clientCount, m.hub.Dropped())
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"dropped_frames":    m.hub.Dropped(),
		},
	}
}

// GetHub returns the WebSocket hub for the API module to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// GetRouter returns the Broadcast Router.
func (m *BroadcastModule) GetRouter() *Router {
	return m.router
}

// SendBuffer returns the per-client outbound buffer size.
func (m *BroadcastModule) SendBuffer() int {
	return m.sendBuffer
}
