package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/example/lobby-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// StatsModule consumes lobby lifecycle events and serves the counters.
type StatsModule struct {
	counters *Counters
}

var _ mono.Module = (*StatsModule)(nil)
var _ mono.EventConsumerModule = (*StatsModule)(nil)
var _ mono.ServiceProviderModule = (*StatsModule)(nil)

func NewModule() *StatsModule {
	return &StatsModule{counters: NewCounters()}
}

func (m *StatsModule) Name() string {
	return "stats"
}

func (m *StatsModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomCreatedV1, m.handleRoomCreated, m); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomDeletedV1, m.handleRoomDeleted, m); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberJoinedV1, m.handleMemberJoined, m); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberLeftV1, m.handleMemberLeft, m); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}

	log.Printf("[stats] Registered event consumers: RoomCreated, RoomDeleted, MemberJoined, MemberLeft")
	return nil
}

func (m *StatsModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetStats, json.Unmarshal, json.Marshal, m.handleGetStats,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetStats, err)
	}
	log.Printf("[stats] Registered services: %s", ServiceGetStats)
	return nil
}

func (m *StatsModule) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	m.counters.RoomCreated(event)
	return nil
}

func (m *StatsModule) handleRoomDeleted(_ context.Context, event events.RoomDeletedEvent, _ *mono.Msg) error {
	log.Printf("[stats] Room %s deleted (%s, %d evicted)", event.RoomName, event.Reason, event.Evicted)
	m.counters.RoomDeleted(event)
	return nil
}

func (m *StatsModule) handleMemberJoined(_ context.Context, event events.MemberJoinedEvent, _ *mono.Msg) error {
	m.counters.MemberJoined(event)
	return nil
}

func (m *StatsModule) handleMemberLeft(_ context.Context, event events.MemberLeftEvent, _ *mono.Msg) error {
	m.counters.MemberLeft(event)
	return nil
}

func (m *StatsModule) handleGetStats(_ context.Context, _ GetStatsRequest, _ *mono.Msg) (GetStatsResponse, error) {
	return GetStatsResponse{Stats: m.counters.Snapshot()}, nil
}

// Counters returns the live counters.
func (m *StatsModule) Counters() *Counters {
	return m.counters
}

func (m *StatsModule) Start(_ context.Context) error {
	log.Println("[stats] Module started - counting lobby events")
	return nil
}

func (m *StatsModule) Stop(_ context.Context) error {
	s := m.counters.Snapshot()
	log.Printf("[stats] Module stopped - %d rooms created, %d joins", s.RoomsCreated, s.Joins)
	return nil
}
