package session

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/example/lobby-relay/modules/lobby"
	"github.com/example/lobby-relay/modules/ratelimit"
	"github.com/go-monolith/mono"
)

// SessionModule owns the Session Event Dispatcher and its relay rate limiter.
type SessionModule struct {
	dispatcher   *Dispatcher
	lobby        *lobby.Module
	out          Broadcaster
	limitCfg     ratelimit.Config
	closeLimiter func() error
	logger       *slog.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*SessionModule)(nil)
var _ mono.HealthCheckableModule = (*SessionModule)(nil)

// NewModule creates a new SessionModule configured from the environment.
func NewModule() *SessionModule {
	return &SessionModule{
		limitCfg: ratelimit.ConfigFromEnv(),
		logger:   slog.New(slog.NewTextHandler(os.Stdout, nil)).With("module", "session"),
	}
}

// Name returns the module name.
func (m *SessionModule) Name() string {
	return "session"
}

// SetDependencies wires the lobby module and the broadcast router (called from main.go).
func (m *SessionModule) SetDependencies(lobbyModule *lobby.Module, out Broadcaster) {
	m.lobby = lobbyModule
	m.out = out
}

// Start creates the rate limiter and the dispatcher.
func (m *SessionModule) Start(ctx context.Context) error {
	if m.lobby == nil {
		return fmt.Errorf("lobby module dependency not set")
	}
	if m.out == nil {
		return fmt.Errorf("broadcast router dependency not set")
	}

	limiter, closeLimiter, err := ratelimit.New(ctx, m.limitCfg)
	if err != nil {
		return fmt.Errorf("failed to create relay rate limiter: %w", err)
	}
	m.closeLimiter = closeLimiter

	opts := []Option{
		WithLogger(m.logger),
		WithPublisher(m.lobby),
	}
	if limiter != nil {
		opts = append(opts, WithLimiter(limiter))
	}
	m.dispatcher = NewDispatcher(m.lobby.Store(), m.out, opts...)

	log.Println("[session] Module started - dispatcher ready")
	return nil
}

// Stop releases the rate limiter.
func (m *SessionModule) Stop(_ context.Context) error {
	if m.closeLimiter != nil {
		if err := m.closeLimiter(); err != nil {
			log.Printf("[session] Failed to close rate limiter: %v", err)
		}
	}
	log.Println("[session] Module stopped")
	return nil
}

// Health returns the health status.
func (m *SessionModule) Health(_ context.Context) mono.HealthStatus {
	if m.dispatcher == nil {
		return mono.HealthStatus{Healthy: false, Message: "not started"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"sessions":   m.lobby.Registry().Count(),
			"rate_limit": m.limitCfg.Limit,
		},
	}
}

// Dispatcher returns the dispatcher. It is nil until the module has started.
func (m *SessionModule) Dispatcher() *Dispatcher {
	return m.dispatcher
}
