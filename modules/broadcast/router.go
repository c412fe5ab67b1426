package broadcast

import (
	"encoding/json"
	"log"

	"github.com/example/lobby-relay/modules/lobby"
)

// EventRoomList is the outbound event carrying the full room list.
const EventRoomList = "roomList"

// Transport delivers encoded frames to one connection. Delivery is best-effort
// and must not block the caller.
type Transport interface {
	Send(connID string, frame []byte) bool
}

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Encode marshals an outbound frame.
func Encode(event string, data any) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}

// Router fans events out to room members or to every registered connection.
// Audiences are read from the Room Store and Connection Registry at call time.
type Router struct {
	transport Transport
	store     *lobby.Store
}

// NewRouter creates a Router.
func NewRouter(transport Transport, store *lobby.Store) *Router {
	return &Router{
		transport: transport,
		store:     store,
	}
}

// ToConn sends an event to a single connection.
func (r *Router) ToConn(connID, event string, data any) bool {
	frame, ok := r.encode(event, data)
	if !ok {
		return false
	}
	return r.transport.Send(connID, frame)
}

// ToMembers sends an event to the given connections, skipping except.
// It returns the number of frames queued.
func (r *Router) ToMembers(ids []string, except, event string, data any) int {
	if len(ids) == 0 {
		return 0
	}
	frame, ok := r.encode(event, data)
	if !ok {
		return 0
	}
	sent := 0
	for _, id := range ids {
		if id == except {
			continue
		}
		if r.transport.Send(id, frame) {
			sent++
		}
	}
	return sent
}

// ToRoom sends an event to every current member of a room.
func (r *Router) ToRoom(roomName, event string, data any) int {
	return r.ToMembers(r.store.MemberIDs(roomName), "", event, data)
}

// ToRoomExcept sends an event to every current member of a room except one connection.
func (r *Router) ToRoomExcept(roomName, except, event string, data any) int {
	return r.ToMembers(r.store.MemberIDs(roomName), except, event, data)
}

// ToAll sends an event to every registered connection.
func (r *Router) ToAll(event string, data any) int {
	return r.ToMembers(r.store.Registry().IDs(), "", event, data)
}

// RoomListUpdate broadcasts the current room list to every registered connection.
func (r *Router) RoomListUpdate() int {
	return r.ToAll(EventRoomList, r.store.Summaries())
}

// RoomListTo sends the current room list to a single connection.
func (r *Router) RoomListTo(connID string) bool {
	return r.ToConn(connID, EventRoomList, r.store.Summaries())
}

func (r *Router) encode(event string, data any) ([]byte, bool) {
	frame, err := Encode(event, data)
	if err != nil {
		log.Printf("[broadcast] Failed to encode %s frame: %v", event, err)
		return nil, false
	}
	return frame, true
}
