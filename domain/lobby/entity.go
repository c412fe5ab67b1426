package lobby

import "time"

// Status is the lifecycle state of a room.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
)

// Mode selects the room variant.
type Mode string

const (
	// ModeMatch rooms have a fixed capacity and start when full.
	// A connection may occupy at most one match room at a time.
	ModeMatch Mode = "match"
	// ModeChat rooms are unbounded and never start.
	ModeChat Mode = "chat"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeMatch || m == ModeChat
}

// Member is one connection's membership in a room.
type Member struct {
	ConnectionID string    `json:"connectionId"`
	Nickname     string    `json:"nickname"`
	Position     int       `json:"position"`
	JoinedAt     time.Time `json:"joinedAt"`
}

// Room is a point-in-time copy of a room's state.
// Values handed out by the store are never shared with its internal state.
type Room struct {
	Name      string    `json:"roomName"`
	Mode      Mode      `json:"mode"`
	CreatedBy string    `json:"createdBy"`
	OwnerID   string    `json:"-"`
	Status    Status    `json:"status"`
	Capacity  int       `json:"capacity"`
	Locked    bool      `json:"locked"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether connID holds a membership in the room.
func (r Room) HasMember(connID string) bool {
	for _, m := range r.Members {
		if m.ConnectionID == connID {
			return true
		}
	}
	return false
}

// MemberIDs returns the connection ids of all members in join order.
func (r Room) MemberIDs() []string {
	ids := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		ids = append(ids, m.ConnectionID)
	}
	return ids
}

// Summary is the room-list entry broadcast to every client.
type Summary struct {
	Name      string   `json:"roomName"`
	CreatedBy string   `json:"createdBy"`
	Players   []string `json:"players"`
	Status    Status   `json:"status"`
	Mode      Mode     `json:"mode"`
	Capacity  int      `json:"capacity"`
	Locked    bool     `json:"locked"`
}

// Summarize converts a room into its room-list entry.
func Summarize(r Room) Summary {
	players := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		players = append(players, m.Nickname)
	}
	return Summary{
		Name:      r.Name,
		CreatedBy: r.CreatedBy,
		Players:   players,
		Status:    r.Status,
		Mode:      r.Mode,
		Capacity:  r.Capacity,
		Locked:    r.Locked,
	}
}

// DepartureReason explains why a membership ended.
type DepartureReason string

const (
	ReasonLeft         DepartureReason = "left"
	ReasonDisconnected DepartureReason = "disconnected"
	ReasonDeleted      DepartureReason = "deleted"
	ReasonOwnerLeft    DepartureReason = "ownerLeft"
	// ReasonEmptied marks a room removed because its last member left.
	ReasonEmptied DepartureReason = "empty"
)

// Departure describes the outcome of removing one membership.
// Room holds the state after removal; when RoomDeleted is set, Room.Members
// lists the members that were evicted together with the room.
type Departure struct {
	Room        Room            `json:"room"`
	Member      Member          `json:"member"`
	RoomDeleted bool            `json:"roomDeleted"`
	Reason      DepartureReason `json:"reason"`
}
