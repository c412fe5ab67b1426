package lobby

import (
	"sort"
	"sync"
	"time"
)

// Connection is the registry's record of one live client connection.
type Connection struct {
	ID          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	ConnectedAt time.Time `json:"connected_at"`
	Rooms       []string  `json:"rooms"`
}

type connection struct {
	id          string
	nickname    string
	connectedAt time.Time
	rooms       map[string]struct{}
}

// Registry tracks live connections and the rooms each one occupies.
//
// Room sets are only mutated by the Store while it holds its own lock, which
// keeps them in lockstep with room membership. Lock order is Store then Registry.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*connection),
	}
}

// Register records a new connection. It returns false if the id is already registered.
func (r *Registry) Register(id, nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[id]; exists {
		return false
	}
	r.conns[id] = &connection{
		id:          id,
		nickname:    nickname,
		connectedAt: time.Now(),
		rooms:       make(map[string]struct{}),
	}
	return true
}

// Unregister removes a connection and returns the rooms it occupied.
// Unregistering an unknown connection returns nil.
func (r *Registry) Unregister(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[id]
	if !exists {
		return nil
	}
	delete(r.conns, id)
	return sortedRooms(conn.rooms)
}

// CurrentRooms returns the rooms a connection occupies, sorted by name.
func (r *Registry) CurrentRooms(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[id]
	if !exists {
		return nil
	}
	return sortedRooms(conn.rooms)
}

// Get returns a copy of a connection record.
func (r *Registry) Get(id string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[id]
	if !exists {
		return Connection{}, false
	}
	return Connection{
		ID:          conn.id,
		Nickname:    conn.nickname,
		ConnectedAt: conn.connectedAt,
		Rooms:       sortedRooms(conn.rooms),
	}, true
}

// Has reports whether the connection is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.conns[id]
	return exists
}

// IDs returns the ids of all registered connections.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) nickname(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.conns[id]
	if !exists {
		return "", false
	}
	return conn.nickname, true
}

func (r *Registry) attach(id, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.conns[id]
	if !exists {
		return false
	}
	conn.rooms[room] = struct{}{}
	return true
}

func (r *Registry) detach(id, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, exists := r.conns[id]; exists {
		delete(conn.rooms, room)
	}
}

func sortedRooms(set map[string]struct{}) []string {
	rooms := make([]string, 0, len(set))
	for name := range set {
		rooms = append(rooms, name)
	}
	sort.Strings(rooms)
	return rooms
}
