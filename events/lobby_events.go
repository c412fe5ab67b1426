package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted after a room is created.
type RoomCreatedEvent struct {
	RoomName  string    `json:"room_name"`
	Mode      string    `json:"mode"`
	CreatedBy string    `json:"created_by"`
	Locked    bool      `json:"locked"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted after a room is removed, explicitly or because it emptied.
type RoomDeletedEvent struct {
	RoomName  string    `json:"room_name"`
	Reason    string    `json:"reason"`
	Evicted   int       `json:"evicted"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberJoinedEvent is emitted after a connection joins a room.
type MemberJoinedEvent struct {
	RoomName     string    `json:"room_name"`
	ConnectionID string    `json:"connection_id"`
	Nickname     string    `json:"nickname"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted after a membership ends by leave or disconnect.
type MemberLeftEvent struct {
	RoomName     string    `json:"room_name"`
	ConnectionID string    `json:"connection_id"`
	Nickname     string    `json:"nickname"`
	Reason       string    `json:"reason"`
	Timestamp    time.Time `json:"timestamp"`
}

// Event definitions for the lobby domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"lobby",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"lobby",
		"RoomDeleted",
		"v1",
	)

	MemberJoinedV1 = helper.EventDefinition[MemberJoinedEvent](
		"lobby",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"lobby",
		"MemberLeft",
		"v1",
	)
)
