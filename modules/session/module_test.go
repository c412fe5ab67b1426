package session

import (
	"context"
	"testing"

	"github.com/example/lobby-relay/modules/broadcast"
	"github.com/example/lobby-relay/modules/lobby"
	"github.com/example/lobby-relay/modules/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionModule_StartRequiresDependencies(t *testing.T) {
	m := NewModule()
	assert.Equal(t, "session", m.Name())
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
}

func TestSessionModule_Lifecycle(t *testing.T) {
	lobbyModule := lobby.NewModuleWithConfig(lobby.DefaultConfig())
	router := broadcast.NewRouter(newRecorder(), lobbyModule.Store())

	m := NewModule()
	m.limitCfg = ratelimit.DefaultConfig()
	m.SetDependencies(lobbyModule, router)

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NotNil(t, m.Dispatcher())
	assert.NotNil(t, m.Dispatcher().limiter, "in-memory limiter expected by default")

	require.NoError(t, m.Dispatcher().Connect("c1", "alice"))
	health := m.Health(ctx)
	assert.True(t, health.Healthy)
	assert.Equal(t, 1, health.Details["sessions"])

	assert.NoError(t, m.Stop(ctx))
}

func TestSessionModule_RateLimitDisabled(t *testing.T) {
	lobbyModule := lobby.NewModuleWithConfig(lobby.DefaultConfig())
	m := NewModule()
	m.limitCfg = ratelimit.Config{Limit: 0}
	m.SetDependencies(lobbyModule, broadcast.NewRouter(newRecorder(), lobbyModule.Store()))

	require.NoError(t, m.Start(context.Background()))
	assert.Nil(t, m.Dispatcher().limiter)
}
