package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	domain "github.com/example/lobby-relay/domain/lobby"
	"github.com/example/lobby-relay/modules/lobby"
	"github.com/example/lobby-relay/modules/ratelimit"
)

var (
	// ErrConnectionExists is returned by Connect for an id that is already live.
	ErrConnectionExists = errors.New("connection already registered")
	// ErrRateLimited is reported when a connection relays too fast.
	ErrRateLimited = errors.New("rate limit exceeded, please slow down")
	// ErrInvalidPayload is reported for frames that cannot be decoded.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrUnknownEvent is reported for unsupported event names.
	ErrUnknownEvent = errors.New("unknown event")
)

// Broadcaster delivers outbound events. *broadcast.Router implements it.
type Broadcaster interface {
	ToConn(connID, event string, data any) bool
	ToMembers(ids []string, except, event string, data any) int
	ToRoom(roomName, event string, data any) int
	ToRoomExcept(roomName, except, event string, data any) int
	RoomListUpdate() int
	RoomListTo(connID string) bool
}

// Publisher receives committed room lifecycle changes. *lobby.Module implements it.
type Publisher interface {
	PublishRoomCreated(room domain.Room)
	PublishRoomDeleted(room domain.Room, reason domain.DepartureReason)
	PublishMemberJoined(room domain.Room, member domain.Member)
	PublishMemberLeft(dep domain.Departure)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithLimiter rate limits move and message relays per connection.
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(d *Dispatcher) {
		d.limiter = limiter
	}
}

// WithPublisher publishes lifecycle events after each committed mutation.
func WithPublisher(publisher Publisher) Option {
	return func(d *Dispatcher) {
		d.publisher = publisher
	}
}

// Dispatcher translates inbound client events into Room Store operations
// and outbound broadcasts.
//
// seq is held from each Room Store mutation until its broadcasts are queued,
// so members of a room receive notifications in the order the mutations were
// applied. Queueing never blocks. Secret hashing, rate limiting and event
// publishing happen outside seq.
type Dispatcher struct {
	store     *lobby.Store
	registry  *lobby.Registry
	out       Broadcaster
	limiter   ratelimit.Limiter
	publisher Publisher
	logger    *slog.Logger
	seq       sync.Mutex
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(store *lobby.Store, out Broadcaster, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:    store,
		registry: store.Registry(),
		out:      out,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Connect registers a new connection and greets it with its id and the room list.
func (d *Dispatcher) Connect(connID, nickname string) error {
	if err := domain.ValidateNickname(nickname); err != nil {
		return err
	}
	if !d.registry.Register(connID, nickname) {
		return ErrConnectionExists
	}
	d.out.ToConn(connID, EventConnected, ConnectedPayload{ID: connID, Nickname: nickname})
	d.out.RoomListTo(connID)
	d.logger.Info("Session connected", "conn", connID, "nickname", nickname)
	return nil
}

// State returns the lifecycle state of a connection.
func (d *Dispatcher) State(connID string) State {
	conn, ok := d.registry.Get(connID)
	switch {
	case !ok:
		return StateDisconnected
	case len(conn.Rooms) > 0:
		return StateJoinedRoom
	default:
		return StateConnected
	}
}

// Handle processes one inbound frame. Request failures are reported to the
// requester as error frames; Handle only returns an error when the connection
// is not live.
func (d *Dispatcher) Handle(ctx context.Context, connID string, frame []byte) error {
	if !d.registry.Has(connID) {
		return domain.ErrUnknownConnection
	}

	var env envelope
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic in event handler", "conn", connID, "event", env.Event, "panic", r)
			d.sendError(connID, env.Event, fmt.Errorf("internal error"))
		}
	}()

	if err := json.Unmarshal(frame, &env); err != nil {
		d.sendError(connID, "", ErrInvalidPayload)
		return nil
	}

	switch env.Event {
	case EventCreateRoom:
		d.handleCreateRoom(connID, env.Data)
	case EventJoinRoom:
		d.handleJoinRoom(connID, env.Data)
	case EventLeaveRoom:
		d.handleLeaveRoom(connID, env.Data)
	case EventMove:
		d.handleMove(ctx, connID, env.Data)
	case EventMessage, EventSendMessage:
		d.handleMessage(ctx, connID, env.Event, env.Data)
	case EventDeleteRoom:
		d.handleDeleteRoom(connID, env.Data)
	case EventListRooms:
		d.out.RoomListTo(connID)
	default:
		d.sendError(connID, env.Event, ErrUnknownEvent)
	}
	return nil
}

func (d *Dispatcher) handleCreateRoom(connID string, data json.RawMessage) {
	var req CreateRoomPayload
	if !d.decode(connID, EventCreateRoom, data, &req) {
		return
	}

	nickname := req.CreatedBy
	if nickname == "" {
		nickname = req.Creator
	}
	params := lobby.CreateParams{
		Name:      req.RoomName,
		Mode:      domain.Mode(req.Mode),
		CreatorID: connID,
		CreatedBy: nickname,
	}
	if req.Password != "" {
		hash, err := d.store.HashSecret(req.Password)
		if err != nil {
			d.sendError(connID, EventCreateRoom, err)
			return
		}
		params.SecretHash = hash
	}

	var room domain.Room
	err := d.sequenced(func() error {
		var err error
		if room, err = d.store.CreateRoom(params); err != nil {
			return err
		}
		d.out.ToConn(connID, EventRoomJoined, RoomJoinedPayload{RoomName: room.Name, Room: room})
		d.out.RoomListUpdate()
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrRoomAlreadyExists) {
			d.out.ToConn(connID, EventRoomExists, RoomExistsPayload{RoomName: req.RoomName})
		}
		d.sendError(connID, EventCreateRoom, err)
		return
	}

	d.logger.Info("Room created", "conn", connID, "room", room.Name, "mode", room.Mode, "locked", room.Locked)
	if d.publisher != nil {
		d.publisher.PublishRoomCreated(room)
		d.publisher.PublishMemberJoined(room, room.Members[0])
	}
}

func (d *Dispatcher) handleJoinRoom(connID string, data json.RawMessage) {
	var req JoinRoomPayload
	if !d.decode(connID, EventJoinRoom, data, &req) {
		return
	}

	verified, err := d.store.VerifySecret(req.RoomName, req.Password)
	if err != nil {
		d.sendError(connID, EventJoinRoom, err)
		return
	}

	var (
		room   domain.Room
		member domain.Member
	)
	err = d.sequenced(func() error {
		var err error
		if room, err = d.store.JoinVerified(req.RoomName, connID, req.Nickname, verified); err != nil {
			return err
		}
		member = room.Members[len(room.Members)-1]
		ids := room.MemberIDs()
		d.out.ToConn(connID, EventRoomJoined, RoomJoinedPayload{RoomName: room.Name, Room: room})
		d.out.ToMembers(ids, "", EventPlayerJoined, PlayerJoinedPayload{
			RoomName:     room.Name,
			Nickname:     member.Nickname,
			ConnectionID: member.ConnectionID,
			Position:     member.Position,
		})
		d.out.ToMembers(ids, "", EventUpdatePlayers, updatePlayers(room))
		d.out.RoomListUpdate()
		return nil
	})
	if err != nil {
		d.sendError(connID, EventJoinRoom, err)
		return
	}

	d.logger.Info("Player joined", "conn", connID, "room", room.Name, "status", room.Status)
	if d.publisher != nil {
		d.publisher.PublishMemberJoined(room, member)
	}
}

func (d *Dispatcher) handleLeaveRoom(connID string, data json.RawMessage) {
	var req LeaveRoomPayload
	if !d.decode(connID, EventLeaveRoom, data, &req) {
		return
	}

	var dep domain.Departure
	err := d.sequenced(func() error {
		var err error
		if dep, err = d.store.LeaveRoom(req.RoomName, connID); err != nil {
			return err
		}
		d.out.ToConn(connID, EventRoomLeft, RoomLeftPayload{RoomName: req.RoomName})
		d.notifyDeparture(dep)
		d.out.RoomListUpdate()
		return nil
	})
	if err != nil {
		d.sendError(connID, EventLeaveRoom, err)
		return
	}

	d.logger.Info("Player left", "conn", connID, "room", req.RoomName, "roomDeleted", dep.RoomDeleted)
	d.publishDeparture(dep)
}

func (d *Dispatcher) handleDeleteRoom(connID string, data json.RawMessage) {
	var req DeleteRoomPayload
	if !d.decode(connID, EventDeleteRoom, data, &req) {
		return
	}

	var room domain.Room
	err := d.sequenced(func() error {
		var err error
		if room, err = d.store.DeleteRoom(req.RoomName, connID); err != nil {
			return err
		}
		d.out.ToMembers(room.MemberIDs(), "", EventRoomDeleted, RoomDeletedPayload{
			RoomName: room.Name,
			Reason:   domain.ReasonDeleted,
		})
		d.out.RoomListUpdate()
		return nil
	})
	if err != nil {
		d.sendError(connID, EventDeleteRoom, err)
		return
	}

	d.logger.Info("Room deleted", "conn", connID, "room", room.Name, "evicted", len(room.Members))
	if d.publisher != nil {
		d.publisher.PublishRoomDeleted(room, domain.ReasonDeleted)
	}
}

func (d *Dispatcher) handleMove(ctx context.Context, connID string, data json.RawMessage) {
	var req MovePayload
	if !d.decode(connID, EventMove, data, &req) {
		return
	}
	if !d.allow(ctx, connID, EventMove) {
		return
	}

	d.seq.Lock()
	defer d.seq.Unlock()

	if err := d.store.CheckMember(req.RoomName, connID); err != nil {
		d.sendError(connID, EventMove, err)
		return
	}
	d.out.ToRoomExcept(req.RoomName, connID, EventOpponentMove, req.Move)
}

func (d *Dispatcher) handleMessage(ctx context.Context, connID, event string, data json.RawMessage) {
	var req MessagePayload
	if !d.decode(connID, event, data, &req) {
		return
	}
	if !d.allow(ctx, connID, event) {
		return
	}

	d.seq.Lock()
	defer d.seq.Unlock()

	if err := d.store.CheckMember(req.RoomName, connID); err != nil {
		d.sendError(connID, event, err)
		return
	}
	if event == EventSendMessage {
		d.out.ToRoom(req.RoomName, EventNewMessage, req.Message)
		return
	}

	user := req.User
	if user == "" {
		if conn, ok := d.registry.Get(connID); ok && conn.Nickname != "" {
			user = conn.Nickname
		} else {
			user = connID
		}
	}
	d.out.ToRoom(req.RoomName, EventMessage, ChatPayload{User: user, Message: req.Message})
}

// Disconnect removes the connection from every room it occupied, notifies the
// remaining members and broadcasts one room list update. It is idempotent.
func (d *Dispatcher) Disconnect(ctx context.Context, connID string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic in disconnect cleanup", "conn", connID, "panic", r)
		}
	}()

	var (
		wasLive bool
		deps    []domain.Departure
	)
	_ = d.sequenced(func() error {
		wasLive = d.registry.Has(connID)
		deps = d.store.RemoveConnectionEverywhere(connID)
		for _, dep := range deps {
			d.notifyDeparture(dep)
		}
		if len(deps) > 0 {
			d.out.RoomListUpdate()
		}
		return nil
	})

	if !wasLive {
		return
	}
	if d.limiter != nil {
		d.limiter.Forget(ctx, connID)
	}
	d.logger.Info("Session disconnected", "conn", connID, "rooms", len(deps))
	for _, dep := range deps {
		d.publishDeparture(dep)
	}
}

// sequenced runs fn while holding seq.
func (d *Dispatcher) sequenced(fn func() error) error {
	d.seq.Lock()
	defer d.seq.Unlock()
	return fn()
}

// notifyDeparture queues the room notifications for one ended membership.
// The caller holds seq.
func (d *Dispatcher) notifyDeparture(dep domain.Departure) {
	ids := dep.Room.MemberIDs()
	if dep.RoomDeleted {
		if len(ids) > 0 {
			d.out.ToMembers(ids, "", EventRoomDeleted, RoomDeletedPayload{
				RoomName: dep.Room.Name,
				Reason:   dep.Reason,
			})
		}
		return
	}
	d.out.ToMembers(ids, "", EventPlayerLeft, PlayerLeftPayload{
		RoomName:     dep.Room.Name,
		Nickname:     dep.Member.Nickname,
		ConnectionID: dep.Member.ConnectionID,
	})
	d.out.ToMembers(ids, "", EventUpdatePlayers, updatePlayers(dep.Room))
}

func (d *Dispatcher) publishDeparture(dep domain.Departure) {
	if d.publisher == nil {
		return
	}
	d.publisher.PublishMemberLeft(dep)
	if !dep.RoomDeleted {
		return
	}
	reason := dep.Reason
	if len(dep.Room.Members) == 0 {
		reason = domain.ReasonEmptied
	}
	d.publisher.PublishRoomDeleted(dep.Room, reason)
}

func (d *Dispatcher) allow(ctx context.Context, connID, event string) bool {
	if d.limiter == nil {
		return true
	}
	ok, err := d.limiter.Allow(ctx, connID)
	if err != nil {
		// Fail open when the limiter backend is unavailable.
		d.logger.Warn("Rate limiter error", "conn", connID, "error", err)
		return true
	}
	if !ok {
		d.sendError(connID, event, ErrRateLimited)
		return false
	}
	return true
}

func (d *Dispatcher) decode(connID, event string, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		d.sendError(connID, event, ErrInvalidPayload)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		d.sendError(connID, event, fmt.Errorf("%w: %v", ErrInvalidPayload, err))
		return false
	}
	return true
}

func (d *Dispatcher) sendError(connID, event string, err error) {
	code := errorCode(err)
	d.logger.Debug("Request rejected", "conn", connID, "event", event, "code", code, "error", err)
	d.out.ToConn(connID, EventError, ErrorPayload{
		Event:   event,
		Code:    code,
		Message: err.Error(),
	})
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return domain.CodeRateLimited
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrUnknownEvent):
		return domain.CodeInvalidRequest
	default:
		return domain.Code(err)
	}
}
