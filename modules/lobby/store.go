package lobby

import (
	"slices"
	"sync"
	"time"

	domain "github.com/example/lobby-relay/domain/lobby"
)

// Config holds Room Store policy.
type Config struct {
	// MatchCapacity is the member count at which a match room starts.
	MatchCapacity int
	// DefaultMode is used when a create request does not name a mode.
	DefaultMode domain.Mode
	// DeleteOnOwnerDisconnect deletes a room when its creator disconnects
	// while other members remain.
	DeleteOnOwnerDisconnect bool
	// SecretCost is the bcrypt cost for room secrets (0 selects the default).
	SecretCost int
}

// DefaultConfig returns the default store policy.
func DefaultConfig() Config {
	return Config{
		MatchCapacity: 2,
		DefaultMode:   domain.ModeMatch,
	}
}

// CreateParams describes a room creation request.
type CreateParams struct {
	Name      string
	Mode      domain.Mode
	CreatorID string
	CreatedBy string
	Secret    string
	// SecretHash is used instead of hashing Secret when set (see HashSecret).
	SecretHash string
}

type room struct {
	name       string
	mode       domain.Mode
	createdBy  string
	ownerID    string // creator's connection, fixed for the room's lifetime
	capacity   int
	secretHash string
	members    []domain.Member
	createdAt  time.Time
}

func (r *room) status() domain.Status {
	if r.mode == domain.ModeMatch && r.capacity > 0 && len(r.members) >= r.capacity {
		return domain.StatusInProgress
	}
	return domain.StatusWaiting
}

func (r *room) indexOf(connID string) int {
	return slices.IndexFunc(r.members, func(m domain.Member) bool {
		return m.ConnectionID == connID
	})
}

func (r *room) snapshot() domain.Room {
	members := make([]domain.Member, len(r.members))
	for i, m := range r.members {
		m.Position = i
		members[i] = m
	}
	return domain.Room{
		Name:      r.name,
		Mode:      r.mode,
		CreatedBy: r.createdBy,
		OwnerID:   r.ownerID,
		Status:    r.status(),
		Capacity:  r.capacity,
		Locked:    r.secretHash != "",
		Members:   members,
		CreatedAt: r.createdAt,
	}
}

// Store is the authoritative registry of rooms.
//
// Every mutating operation runs under a single store-wide lock, so room
// creation, membership changes and deletions are observed atomically and
// applied in one global order. Membership changes are mirrored into the
// connection Registry inside the same critical section.
type Store struct {
	mu       sync.RWMutex
	rooms    map[string]*room
	order    []string // creation order
	registry *Registry
	hasher   *SecretHasher
	cfg      Config
}

// NewStore creates a Room Store bound to a connection registry.
func NewStore(registry *Registry, cfg Config) *Store {
	if cfg.MatchCapacity <= 0 {
		cfg.MatchCapacity = 2
	}
	if !cfg.DefaultMode.Valid() {
		cfg.DefaultMode = domain.ModeMatch
	}
	return &Store{
		rooms:    make(map[string]*room),
		registry: registry,
		hasher:   NewSecretHasher(cfg.SecretCost),
		cfg:      cfg,
	}
}

// Registry returns the connection registry kept in lockstep with the store.
func (s *Store) Registry() *Registry {
	return s.registry
}

// Config returns the store policy.
func (s *Store) Config() Config {
	return s.cfg
}

// CreateRoom registers a new room with the creator as its first member.
func (s *Store) CreateRoom(p CreateParams) (domain.Room, error) {
	if err := domain.ValidateRoomName(p.Name); err != nil {
		return domain.Room{}, err
	}
	if err := domain.ValidateNickname(p.CreatedBy); err != nil {
		return domain.Room{}, err
	}
	mode := p.Mode
	if mode == "" {
		mode = s.cfg.DefaultMode
	}
	if !mode.Valid() {
		return domain.Room{}, domain.ErrInvalidMode
	}

	// Hashing is slow; keep it outside the critical section.
	secretHash := p.SecretHash
	if secretHash == "" && p.Secret != "" {
		hash, err := s.hasher.Hash(p.Secret)
		if err != nil {
			return domain.Room{}, err
		}
		secretHash = hash
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[p.Name]; exists {
		return domain.Room{}, domain.ErrRoomAlreadyExists
	}
	nickname, ok := s.resolveNickname(p.CreatorID, p.CreatedBy)
	if !ok {
		return domain.Room{}, domain.ErrUnknownConnection
	}
	if mode == domain.ModeMatch && s.inMatchLocked(p.CreatorID) {
		return domain.Room{}, domain.ErrAlreadyInMatch
	}

	now := time.Now()
	r := &room{
		name:       p.Name,
		mode:       mode,
		createdBy:  nickname,
		ownerID:    p.CreatorID,
		secretHash: secretHash,
		members: []domain.Member{{
			ConnectionID: p.CreatorID,
			Nickname:     nickname,
			JoinedAt:     now,
		}},
		createdAt: now,
	}
	if mode == domain.ModeMatch {
		r.capacity = s.cfg.MatchCapacity
	}

	s.registry.attach(p.CreatorID, p.Name)
	s.rooms[p.Name] = r
	s.order = append(s.order, p.Name)
	return r.snapshot(), nil
}

// HashSecret hashes a room secret for CreateParams.SecretHash.
func (s *Store) HashSecret(secret string) (string, error) {
	return s.hasher.Hash(secret)
}

// JoinVerified appends a membership for connID in join order, completing
// a join whose secret was checked by VerifySecret.
// It fails with ErrBadSecret if the room's secret changed in between.
func (s *Store) JoinVerified(name, connID, nickname, verified string) (domain.Room, error) {
	if err := domain.ValidateNickname(nickname); err != nil {
		return domain.Room{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[name]
	if !exists {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if r.secretHash != verified {
		// The room was replaced between verification and locking.
		return domain.Room{}, domain.ErrBadSecret
	}
	if r.indexOf(connID) >= 0 {
		return domain.Room{}, domain.ErrAlreadyMember
	}
	if r.capacity > 0 && len(r.members) >= r.capacity {
		return domain.Room{}, domain.ErrRoomFull
	}
	resolved, ok := s.resolveNickname(connID, nickname)
	if !ok {
		return domain.Room{}, domain.ErrUnknownConnection
	}
	if r.mode == domain.ModeMatch && s.inMatchLocked(connID) {
		return domain.Room{}, domain.ErrAlreadyInMatch
	}

	r.members = append(r.members, domain.Member{
		ConnectionID: connID,
		Nickname:     resolved,
		JoinedAt:     time.Now(),
	})
	s.registry.attach(connID, name)
	return r.snapshot(), nil
}

// LeaveRoom removes connID's membership, deleting the room if it becomes empty.
func (s *Store) LeaveRoom(name, connID string) (domain.Departure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[name]
	if !exists {
		return domain.Departure{}, domain.ErrRoomNotFound
	}
	idx := r.indexOf(connID)
	if idx < 0 {
		return domain.Departure{}, domain.ErrNotAMember
	}
	return s.removeMemberLocked(r, idx, domain.ReasonLeft), nil
}

// DeleteRoom removes a room unconditionally. Only the creator's connection
// may delete it, whether or not it is still a member.
// The returned room lists the members that were evicted.
func (s *Store) DeleteRoom(name, requester string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, exists := s.rooms[name]
	if !exists {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if r.ownerID != requester {
		return domain.Room{}, domain.ErrNotAuthorized
	}
	snap := r.snapshot()
	s.deleteLocked(r)
	return snap, nil
}

// RemoveConnectionEverywhere unregisters connID and removes its membership
// from every room it occupied, all in one critical section. Rooms left empty
// are deleted. Calling it again for the same connection returns nil.
func (s *Store) RemoveConnectionEverywhere(connID string) []domain.Departure {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := s.registry.Unregister(connID)
	if len(names) == 0 {
		return nil
	}

	departures := make([]domain.Departure, 0, len(names))
	for _, name := range names {
		r, exists := s.rooms[name]
		if !exists {
			continue
		}
		idx := r.indexOf(connID)
		if idx < 0 {
			continue
		}
		if r.ownerID == connID && s.cfg.DeleteOnOwnerDisconnect && len(r.members) > 1 {
			member := r.members[idx]
			r.members = slices.Delete(r.members, idx, idx+1)
			snap := r.snapshot()
			s.deleteLocked(r)
			departures = append(departures, domain.Departure{
				Room:        snap,
				Member:      member,
				RoomDeleted: true,
				Reason:      domain.ReasonOwnerLeft,
			})
			continue
		}
		departures = append(departures, s.removeMemberLocked(r, idx, domain.ReasonDisconnected))
	}
	return departures
}

// Snapshot returns a point-in-time copy of all rooms in creation order.
func (s *Store) Snapshot() []domain.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rooms := make([]domain.Room, 0, len(s.order))
	for _, name := range s.order {
		rooms = append(rooms, s.rooms[name].snapshot())
	}
	return rooms
}

// Summaries returns the room-list entries in creation order.
func (s *Store) Summaries() []domain.Summary {
	rooms := s.Snapshot()
	summaries := make([]domain.Summary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, domain.Summarize(r))
	}
	return summaries
}

// Room returns a copy of the named room.
func (s *Store) Room(name string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rooms[name]
	if !exists {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return r.snapshot(), nil
}

// MemberIDs returns the connection ids currently in the room, in join order.
func (s *Store) MemberIDs(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rooms[name]
	if !exists {
		return nil
	}
	ids := make([]string, 0, len(r.members))
	for _, m := range r.members {
		ids = append(ids, m.ConnectionID)
	}
	return ids
}

// CheckMember returns nil if connID is a member of the room.
func (s *Store) CheckMember(name, connID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.rooms[name]
	if !exists {
		return domain.ErrRoomNotFound
	}
	if r.indexOf(connID) < 0 {
		return domain.ErrNotAMember
	}
	return nil
}

// Count returns the number of rooms.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// VerifySecret checks secret against the room's hash outside the store lock
// and returns the hash it was verified against.
func (s *Store) VerifySecret(name, secret string) (string, error) {
	s.mu.RLock()
	r, exists := s.rooms[name]
	var hash string
	if exists {
		hash = r.secretHash
	}
	s.mu.RUnlock()

	if !exists {
		return "", domain.ErrRoomNotFound
	}
	if hash == "" {
		return "", nil
	}
	if !s.hasher.Verify(secret, hash) {
		return "", domain.ErrBadSecret
	}
	return hash, nil
}

func (s *Store) resolveNickname(connID, nickname string) (string, bool) {
	registered, ok := s.registry.nickname(connID)
	if !ok {
		return "", false
	}
	switch {
	case nickname != "":
		return nickname, true
	case registered != "":
		return registered, true
	default:
		return connID, true
	}
}

func (s *Store) inMatchLocked(connID string) bool {
	for _, name := range s.registry.CurrentRooms(connID) {
		if r, exists := s.rooms[name]; exists && r.mode == domain.ModeMatch {
			return true
		}
	}
	return false
}

func (s *Store) removeMemberLocked(r *room, idx int, reason domain.DepartureReason) domain.Departure {
	member := r.members[idx]
	r.members = slices.Delete(r.members, idx, idx+1)
	s.registry.detach(member.ConnectionID, r.name)

	if len(r.members) == 0 {
		snap := r.snapshot()
		s.deleteLocked(r)
		return domain.Departure{Room: snap, Member: member, RoomDeleted: true, Reason: reason}
	}
	return domain.Departure{Room: r.snapshot(), Member: member, Reason: reason}
}

func (s *Store) deleteLocked(r *room) {
	for _, m := range r.members {
		s.registry.detach(m.ConnectionID, r.name)
	}
	delete(s.rooms, r.name)
	if i := slices.Index(s.order, r.name); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
}
