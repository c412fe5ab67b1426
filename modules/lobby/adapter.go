package lobby

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/lobby-relay/domain/lobby"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// LobbyPort defines the read-only lobby operations exposed to other modules.
type LobbyPort interface {
	ListRooms(ctx context.Context) ([]domain.Summary, error)
	GetRoom(ctx context.Context, name string) (*domain.Room, error)
}

// LobbyAdapter implements LobbyPort using the service container.
type LobbyAdapter struct {
	container mono.ServiceContainer
}

// NewLobbyAdapter creates a new LobbyAdapter.
func NewLobbyAdapter(container mono.ServiceContainer) LobbyPort {
	if container == nil {
		panic("lobby: ServiceContainer is nil")
	}
	return &LobbyAdapter{container: container}
}

// ListRooms returns the room list in creation order.
func (a *LobbyAdapter) ListRooms(ctx context.Context) ([]domain.Summary, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListRooms,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return resp.Rooms, nil
}

// GetRoom retrieves a room by name. It returns domain.ErrRoomNotFound when no such room exists.
func (a *LobbyAdapter) GetRoom(ctx context.Context, name string) (*domain.Room, error) {
	req := GetRoomRequest{RoomName: name}
	var resp GetRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetRoom,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	if !resp.Found {
		return nil, domain.ErrRoomNotFound
	}
	return resp.Room, nil
}
