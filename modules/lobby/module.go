package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	domain "github.com/example/lobby-relay/domain/lobby"
	"github.com/example/lobby-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Module owns the Room Store and Connection Registry and publishes room lifecycle events.
type Module struct {
	registry *Registry
	store    *Store
	eventBus mono.EventBus
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a lobby module configured from the environment.
func NewModule() *Module {
	return NewModuleWithConfig(loadConfig())
}

// NewModuleWithConfig creates a lobby module with an explicit store policy.
func NewModuleWithConfig(cfg Config) *Module {
	registry := NewRegistry()
	return &Module{
		registry: registry,
		store:    NewStore(registry, cfg),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "lobby"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListRooms, json.Unmarshal, json.Marshal, m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetRoom, json.Unmarshal, json.Marshal, m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoom, err)
	}

	log.Printf("[lobby] Registered services: %s, %s", ServiceListRooms, ServiceGetRoom)
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	if m.eventBus == nil {
		log.Println("[lobby] Warning: eventBus not set, lifecycle events will not be published")
	}
	cfg := m.store.Config()
	log.Printf("[lobby] Module started (default mode: %s, match capacity: %d, delete on owner disconnect: %t)",
		cfg.DefaultMode, cfg.MatchCapacity, cfg.DeleteOnOwnerDisconnect)
	return nil
}

// Stop stops the module. Room state is not persisted.
func (m *Module) Stop(_ context.Context) error {
	log.Printf("[lobby] Module stopped - %d rooms discarded", m.store.Count())
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"rooms":       m.store.Count(),
			"connections": m.registry.Count(),
		},
	}
}

// Store returns the Room Store.
func (m *Module) Store() *Store {
	return m.store
}

// Registry returns the Connection Registry.
func (m *Module) Registry() *Registry {
	return m.registry
}

func (m *Module) handleListRooms(_ context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	return ListRoomsResponse{
		Rooms:       m.store.Summaries(),
		Connections: m.registry.Count(),
	}, nil
}

func (m *Module) handleGetRoom(_ context.Context, req GetRoomRequest, _ *mono.Msg) (GetRoomResponse, error) {
	room, err := m.store.Room(req.RoomName)
	if err != nil {
		return GetRoomResponse{Found: false}, nil
	}
	return GetRoomResponse{Found: true, Room: &room}, nil
}

// PublishRoomCreated publishes a RoomCreated event.
func (m *Module) PublishRoomCreated(room domain.Room) {
	if m.eventBus == nil {
		return
	}
	event := events.RoomCreatedEvent{
		RoomName:  room.Name,
		Mode:      string(room.Mode),
		CreatedBy: room.CreatedBy,
		Locked:    room.Locked,
		Timestamp: time.Now(),
	}
	if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[lobby] Failed to publish RoomCreated event: %v", err)
	}
}

// PublishRoomDeleted publishes a RoomDeleted event.
func (m *Module) PublishRoomDeleted(room domain.Room, reason domain.DepartureReason) {
	if m.eventBus == nil {
		return
	}
	event := events.RoomDeletedEvent{
		RoomName:  room.Name,
		Reason:    string(reason),
		Evicted:   len(room.Members),
		Timestamp: time.Now(),
	}
	if err := events.RoomDeletedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[lobby] Failed to publish RoomDeleted event: %v", err)
	}
}

// PublishMemberJoined publishes a MemberJoined event.
func (m *Module) PublishMemberJoined(room domain.Room, member domain.Member) {
	if m.eventBus == nil {
		return
	}
	event := events.MemberJoinedEvent{
		RoomName:     room.Name,
		ConnectionID: member.ConnectionID,
		Nickname:     member.Nickname,
		Status:       string(room.Status),
		Timestamp:    time.Now(),
	}
	if err := events.MemberJoinedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[lobby] Failed to publish MemberJoined event: %v", err)
	}
}

// PublishMemberLeft publishes a MemberLeft event.
func (m *Module) PublishMemberLeft(dep domain.Departure) {
	if m.eventBus == nil {
		return
	}
	event := events.MemberLeftEvent{
		RoomName:     dep.Room.Name,
		ConnectionID: dep.Member.ConnectionID,
		Nickname:     dep.Member.Nickname,
		Reason:       string(dep.Reason),
		Timestamp:    time.Now(),
	}
	if err := events.MemberLeftV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[lobby] Failed to publish MemberLeft event: %v", err)
	}
}

// loadConfig loads the store policy from environment variables.
func loadConfig() Config {
	cfg := DefaultConfig()

	if mode := os.Getenv("LOBBY_DEFAULT_MODE"); mode != "" {
		if m := domain.Mode(mode); m.Valid() {
			cfg.DefaultMode = m
		} else {
			log.Printf("[lobby] Ignoring invalid LOBBY_DEFAULT_MODE %q", mode)
		}
	}

	if v := os.Getenv("LOBBY_MATCH_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MatchCapacity = n
		}
	}

	if v := os.Getenv("LOBBY_DELETE_ON_OWNER_DISCONNECT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.DeleteOnOwnerDisconnect = b
		}
	}

	if v := os.Getenv("LOBBY_SECRET_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SecretCost = n
		}
	}

	return cfg
}
