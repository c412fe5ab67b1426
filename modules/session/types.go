package session

import (
	"encoding/json"

	domain "github.com/example/lobby-relay/domain/lobby"
)

// Inbound event names.
const (
	EventCreateRoom  = "createRoom"
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventMove        = "move"
	EventMessage     = "message"
	EventSendMessage = "sendMessage"
	EventDeleteRoom  = "deleteRoom"
	EventListRooms   = "listRooms"
)

// Outbound event names.
const (
	EventConnected     = "connected"
	EventRoomList      = "roomList"
	EventRoomJoined    = "roomJoined"
	EventRoomLeft      = "roomLeft"
	EventPlayerJoined  = "playerJoined"
	EventPlayerLeft    = "playerLeft"
	EventUpdatePlayers = "updatePlayers"
	EventOpponentMove  = "opponentMove"
	EventNewMessage    = "newMessage"
	EventRoomDeleted   = "roomDeleted"
	EventRoomExists    = "roomExists"
	EventError         = "error"
)

// State is the lifecycle state of a connection.
type State string

const (
	StateConnected    State = "CONNECTED"
	StateJoinedRoom   State = "JOINED_ROOM"
	StateDisconnected State = "DISCONNECTED"
)

// envelope is an inbound websocket frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// CreateRoomPayload is the createRoom request.
type CreateRoomPayload struct {
	RoomName  string `json:"roomName"`
	CreatedBy string `json:"createdBy"`
	Creator   string `json:"creator"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
}

// JoinRoomPayload is the joinRoom request.
type JoinRoomPayload struct {
	RoomName string `json:"roomName"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// LeaveRoomPayload is the leaveRoom request.
type LeaveRoomPayload struct {
	RoomName string `json:"roomName"`
}

// MovePayload is a move relayed verbatim to the opponent.
type MovePayload struct {
	RoomName string          `json:"roomName"`
	Move     json.RawMessage `json:"move"`
}

// MessagePayload is a chat message relayed to the room.
type MessagePayload struct {
	RoomName string          `json:"roomName"`
	Message  json.RawMessage `json:"message"`
	User     string          `json:"user"`
}

// DeleteRoomPayload is the deleteRoom request. RequestedBy is informational;
// ownership is checked against the requesting connection.
type DeleteRoomPayload struct {
	RoomName    string `json:"roomName"`
	RequestedBy string `json:"requestedBy"`
}

// ConnectedPayload is sent once after the handshake.
type ConnectedPayload struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

// RoomJoinedPayload acknowledges a create or join to the requester.
type RoomJoinedPayload struct {
	RoomName string      `json:"roomName"`
	Room     domain.Room `json:"room"`
}

// RoomLeftPayload acknowledges a leave to the requester.
type RoomLeftPayload struct {
	RoomName string `json:"roomName"`
}

// PlayerJoinedPayload announces a new member to the room.
type PlayerJoinedPayload struct {
	RoomName     string `json:"roomName"`
	Nickname     string `json:"nickname"`
	ConnectionID string `json:"connectionId"`
	Position     int    `json:"position"`
}

// PlayerLeftPayload announces a departed member to the room.
type PlayerLeftPayload struct {
	RoomName     string `json:"roomName"`
	Nickname     string `json:"nickname"`
	ConnectionID string `json:"connectionId"`
}

// Player is one entry of an updatePlayers list.
type Player struct {
	ConnectionID string `json:"connectionId"`
	Nickname     string `json:"nickname"`
	Position     int    `json:"position"`
}

// UpdatePlayersPayload carries the room's full member list and status.
type UpdatePlayersPayload struct {
	RoomName string        `json:"roomName"`
	Players  []Player      `json:"players"`
	Status   domain.Status `json:"status"`
}

// ChatPayload is the outbound form of an inbound message event.
type ChatPayload struct {
	User    string          `json:"user"`
	Message json.RawMessage `json:"message"`
}

// RoomDeletedPayload tells members their room is gone.
type RoomDeletedPayload struct {
	RoomName string                 `json:"roomName"`
	Reason   domain.DepartureReason `json:"reason"`
}

// RoomExistsPayload reports a create conflict.
type RoomExistsPayload struct {
	RoomName string `json:"roomName"`
}

// ErrorPayload reports a failed request to the requester only.
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func updatePlayers(room domain.Room) UpdatePlayersPayload {
	players := make([]Player, 0, len(room.Members))
	for _, m := range room.Members {
		players = append(players, Player{
			ConnectionID: m.ConnectionID,
			Nickname:     m.Nickname,
			Position:     m.Position,
		})
	}
	return UpdatePlayersPayload{
		RoomName: room.Name,
		Players:  players,
		Status:   room.Status,
	}
}
