package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/lobby-relay/modules/auth"
	"github.com/example/lobby-relay/modules/broadcast"
	"github.com/example/lobby-relay/modules/lobby"
	"github.com/example/lobby-relay/modules/session"
	"github.com/example/lobby-relay/modules/stats"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// APIModule is the HTTP API module: the /ws relay endpoint plus the REST read and auth API.
type APIModule struct {
	app            *fiber.App
	lobbyAdapter   lobby.LobbyPort
	authAdapter    auth.AuthPort
	statsAdapter   stats.StatsPort
	hub            *broadcast.Hub
	sessions       *session.SessionModule
	dispatcher     *session.Dispatcher
	sendBuffer     int
	port           string
	allowedOrigins string
	requireAuth    bool
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule() *APIModule {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	requireAuth, _ := strconv.ParseBool(os.Getenv("LOBBY_REQUIRE_AUTH"))

	return &APIModule{
		port:           port,
		allowedOrigins: allowedOrigins,
		requireAuth:    requireAuth,
		sendBuffer:     broadcast.DefaultSendBuffer,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"lobby", "auth", "stats"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "lobby":
		m.lobbyAdapter = lobby.NewLobbyAdapter(container)
	case "auth":
		m.authAdapter = auth.NewAuthAdapter(container)
	case "stats":
		m.statsAdapter = stats.NewStatsAdapter(container)
	}
}

// SetHub sets the broadcast hub and the per-client buffer size (called from main.go).
func (m *APIModule) SetHub(hub *broadcast.Hub, sendBuffer int) {
	m.hub = hub
	if sendBuffer > 0 {
		m.sendBuffer = sendBuffer
	}
}

// SetSessions sets the session module whose dispatcher serves /ws (called from main.go).
func (m *APIModule) SetSessions(sessions *session.SessionModule) {
	m.sessions = sessions
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.lobbyAdapter == nil {
		return fmt.Errorf("lobby adapter dependency not set")
	}
	if m.authAdapter == nil {
		return fmt.Errorf("auth adapter dependency not set")
	}
	if m.statsAdapter == nil {
		return fmt.Errorf("stats adapter dependency not set")
	}
	if m.hub == nil {
		return fmt.Errorf("broadcast hub dependency not set")
	}
	if m.sessions == nil || m.sessions.Dispatcher() == nil {
		return fmt.Errorf("session dispatcher not available")
	}
	m.dispatcher = m.sessions.Dispatcher()

	m.app = m.newApp()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	log.Printf("[api] HTTP server started on :%s (require auth: %t)", m.port, m.requireAuth)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "lobby-relay",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[api] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderUpgrade) == "websocket"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.allowedOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("[api] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
