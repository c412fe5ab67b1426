package lobby

import domain "github.com/example/lobby-relay/domain/lobby"

// Service names registered by the lobby module.
const (
	ServiceListRooms = "list-rooms"
	ServiceGetRoom   = "get-room"
)

// ListRoomsRequest is the request for the room-list snapshot.
type ListRoomsRequest struct{}

// ListRoomsResponse carries the room list in creation order.
type ListRoomsResponse struct {
	Rooms       []domain.Summary `json:"rooms"`
	Connections int              `json:"connections"`
}

// GetRoomRequest is the request for a single room.
type GetRoomRequest struct {
	RoomName string `json:"room_name"`
}

// GetRoomResponse carries a room and its members.
type GetRoomResponse struct {
	Found bool         `json:"found"`
	Room  *domain.Room `json:"room,omitempty"`
}
