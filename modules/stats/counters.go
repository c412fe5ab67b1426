package stats

import (
	"maps"
	"sync"
	"time"

	domain "github.com/example/lobby-relay/domain/lobby"
	"github.com/example/lobby-relay/events"
)

// Counters aggregates room lifecycle events.
type Counters struct {
	mu    sync.Mutex
	stats Stats
}

// NewCounters creates empty counters.
func NewCounters() *Counters {
	return &Counters{
		stats: Stats{
			DeletedBy:  make(map[string]int64),
			DepartedBy: make(map[string]int64),
			ByMode:     make(map[string]int64),
		},
	}
}

// RoomCreated records a created room.
func (c *Counters) RoomCreated(e events.RoomCreatedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.RoomsCreated++
	c.stats.ByMode[e.Mode]++
	if e.Locked {
		c.stats.LockedRooms++
	}
	c.touch(e.Timestamp)
}

// RoomDeleted records a removed room.
func (c *Counters) RoomDeleted(e events.RoomDeletedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.RoomsDeleted++
	c.stats.DeletedBy[e.Reason]++
	c.touch(e.Timestamp)
}

// MemberJoined records a join. A join that fills a match room starts the match.
func (c *Counters) MemberJoined(e events.MemberJoinedEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Joins++
	if e.Status == string(domain.StatusInProgress) {
		c.stats.MatchesStarted++
	}
	c.touch(e.Timestamp)
}

// MemberLeft records an ended membership.
func (c *Counters) MemberLeft(e events.MemberLeftEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Departures++
	c.stats.DepartedBy[e.Reason]++
	c.touch(e.Timestamp)
}

// Snapshot returns a copy of the counters.
func (c *Counters) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.DeletedBy = maps.Clone(c.stats.DeletedBy)
	s.DepartedBy = maps.Clone(c.stats.DepartedBy)
	s.ByMode = maps.Clone(c.stats.ByMode)
	return s
}

func (c *Counters) touch(at time.Time) {
	if at.After(c.stats.LastEventAt) {
		c.stats.LastEventAt = at
	}
}
