package lobby

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	domain "github.com/example/lobby-relay/domain/lobby"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T, cfg Config, conns ...string) *Store {
	t.Helper()
	cfg.SecretCost = 4 // bcrypt.MinCost keeps tests fast
	registry := NewRegistry()
	for _, id := range conns {
		if !registry.Register(id, "nick-"+id) {
			t.Fatalf("Register(%q) returned false", id)
		}
	}
	return NewStore(registry, cfg)
}

func mustCreate(t *testing.T, s *Store, p CreateParams) domain.Room {
	t.Helper()
	room, err := s.CreateRoom(p)
	if err != nil {
		t.Fatalf("CreateRoom(%q) unexpected error: %v", p.Name, err)
	}
	return room
}

func joinRoom(s *Store, name, connID, nickname, secret string) (domain.Room, error) {
	verified, err := s.VerifySecret(name, secret)
	if err != nil {
		return domain.Room{}, err
	}
	return s.JoinVerified(name, connID, nickname, verified)
}

func TestStore_CreateRoom(t *testing.T) {
	tests := []struct {
		name    string
		params  CreateParams
		wantErr error
	}{
		{
			name:   "valid match room",
			params: CreateParams{Name: "R1", CreatorID: "a", CreatedBy: "alice"},
		},
		{
			name:   "valid chat room",
			params: CreateParams{Name: "lounge", Mode: domain.ModeChat, CreatorID: "a"},
		},
		{
			name:    "empty name",
			params:  CreateParams{Name: "", CreatorID: "a"},
			wantErr: domain.ErrRoomNameEmpty,
		},
		{
			name:    "name too long",
			params:  CreateParams{Name: strings.Repeat("x", domain.MaxRoomNameLength+1), CreatorID: "a"},
			wantErr: domain.ErrRoomNameTooLong,
		},
		{
			name:    "invalid utf-8 name",
			params:  CreateParams{Name: "bad\xff", CreatorID: "a"},
			wantErr: domain.ErrRoomNameInvalid,
		},
		{
			name:    "unknown mode",
			params:  CreateParams{Name: "R1", Mode: "arena", CreatorID: "a"},
			wantErr: domain.ErrInvalidMode,
		},
		{
			name:    "nickname too long",
			params:  CreateParams{Name: "R1", CreatorID: "a", CreatedBy: strings.Repeat("n", domain.MaxNicknameLength+1)},
			wantErr: domain.ErrNicknameTooLong,
		},
		{
			name:    "unregistered creator",
			params:  CreateParams{Name: "R1", CreatorID: "ghost"},
			wantErr: domain.ErrUnknownConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, DefaultConfig(), "a")
			room, err := s.CreateRoom(tt.params)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreateRoom() error = %v, want %v", err, tt.wantErr)
				}
				if s.Count() != 0 {
					t.Errorf("Count() = %d after failed create, want 0", s.Count())
				}
				return
			}

			if err != nil {
				t.Fatalf("CreateRoom() unexpected error: %v", err)
			}
			if room.Name != tt.params.Name {
				t.Errorf("room.Name = %q, want %q", room.Name, tt.params.Name)
			}
			if len(room.Members) != 1 || room.Members[0].ConnectionID != "a" {
				t.Errorf("room.Members = %+v, want creator as sole member", room.Members)
			}
			if room.Status != domain.StatusWaiting {
				t.Errorf("room.Status = %q, want %q", room.Status, domain.StatusWaiting)
			}
			if room.OwnerID != "a" {
				t.Errorf("room.OwnerID = %q, want %q", room.OwnerID, "a")
			}
			if got := s.Registry().CurrentRooms("a"); len(got) != 1 || got[0] != tt.params.Name {
				t.Errorf("CurrentRooms(a) = %v, want [%s]", got, tt.params.Name)
			}
		})
	}
}

func TestStore_CreateRoom_Duplicate(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b")
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a"})

	_, err := s.CreateRoom(CreateParams{Name: "R1", CreatorID: "b"})
	if !errors.Is(err, domain.ErrRoomAlreadyExists) {
		t.Fatalf("CreateRoom() error = %v, want ErrRoomAlreadyExists", err)
	}

	room, _ := s.Room("R1")
	if room.OwnerID != "a" || len(room.Members) != 1 {
		t.Errorf("existing room was modified: %+v", room)
	}
}

func TestStore_CreateRoom_CaseSensitive(t *testing.T) {
	s := newTestStore(t, Config{DefaultMode: domain.ModeChat}, "a")
	mustCreate(t, s, CreateParams{Name: "Room", CreatorID: "a"})
	mustCreate(t, s, CreateParams{Name: "room", CreatorID: "a"})

	if s.Count() != 2 {
		t.Errorf("Count() = %d, want 2", s.Count())
	}
}

func TestStore_CreateRoom_NicknameFallback(t *testing.T) {
	registry := NewRegistry()
	registry.Register("a", "alice")
	registry.Register("b", "")
	s := NewStore(registry, Config{DefaultMode: domain.ModeChat, SecretCost: 4})

	room := mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a"})
	if room.CreatedBy != "alice" {
		t.Errorf("CreatedBy = %q, want session nickname", room.CreatedBy)
	}

	room = mustCreate(t, s, CreateParams{Name: "R2", CreatorID: "b"})
	if room.CreatedBy != "b" {
		t.Errorf("CreatedBy = %q, want connection id fallback", room.CreatedBy)
	}

	room = mustCreate(t, s, CreateParams{Name: "R3", CreatorID: "b", CreatedBy: "bob"})
	if room.CreatedBy != "bob" {
		t.Errorf("CreatedBy = %q, want payload nickname", room.CreatedBy)
	}
}

func TestStore_JoinRoom_FillsMatch(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b", "c")
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a", CreatedBy: "alice"})

	room, err := joinRoom(s, "R1", "b", "bob", "")
	if err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}
	if room.Status != domain.StatusInProgress {
		t.Errorf("Status = %q, want %q", room.Status, domain.StatusInProgress)
	}
	if len(room.Members) != 2 {
		t.Fatalf("len(Members) = %d, want 2", len(room.Members))
	}
	if room.Members[0].Nickname != "alice" || room.Members[1].Nickname != "bob" {
		t.Errorf("Members not in join order: %+v", room.Members)
	}
	if room.Members[1].Position != 1 {
		t.Errorf("joiner Position = %d, want 1", room.Members[1].Position)
	}

	_, err = joinRoom(s, "R1", "c", "carol", "")
	if !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("third JoinRoom() error = %v, want ErrRoomFull", err)
	}
	room, _ = s.Room("R1")
	if len(room.Members) != 2 {
		t.Errorf("full room changed: %+v", room.Members)
	}
}

func TestStore_JoinRoom_Errors(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b")
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a"})

	if _, err := joinRoom(s, "missing", "b", "", ""); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("JoinRoom(missing) error = %v, want ErrRoomNotFound", err)
	}
	if _, err := joinRoom(s, "R1", "a", "", ""); !errors.Is(err, domain.ErrAlreadyMember) {
		t.Errorf("JoinRoom(self) error = %v, want ErrAlreadyMember", err)
	}
	if _, err := joinRoom(s, "R1", "ghost", "", ""); !errors.Is(err, domain.ErrUnknownConnection) {
		t.Errorf("JoinRoom(ghost) error = %v, want ErrUnknownConnection", err)
	}
	if _, err := joinRoom(s, "R1", "b", strings.Repeat("n", 51), ""); !errors.Is(err, domain.ErrNicknameTooLong) {
		t.Errorf("JoinRoom(long nick) error = %v, want ErrNicknameTooLong", err)
	}
}

func TestStore_JoinRoom_Secret(t *testing.T) {
	s := newTestStore(t, Config{DefaultMode: domain.ModeChat}, "a", "b", "c")
	room := mustCreate(t, s, CreateParams{Name: "vault", CreatorID: "a", Secret: "hunter2"})
	if !room.Locked {
		t.Error("room with secret should be locked")
	}

	if _, err := joinRoom(s, "vault", "b", "", "wrong"); !errors.Is(err, domain.ErrBadSecret) {
		t.Errorf("JoinRoom(wrong) error = %v, want ErrBadSecret", err)
	}
	if _, err := joinRoom(s, "vault", "b", "", ""); !errors.Is(err, domain.ErrBadSecret) {
		t.Errorf("JoinRoom(empty) error = %v, want ErrBadSecret", err)
	}
	if _, err := joinRoom(s, "vault", "b", "", "hunter2"); err != nil {
		t.Errorf("JoinRoom(correct) unexpected error: %v", err)
	}

	// An unlocked room ignores any supplied secret.
	mustCreate(t, s, CreateParams{Name: "open", CreatorID: "a"})
	if _, err := joinRoom(s, "open", "c", "", "anything"); err != nil {
		t.Errorf("JoinRoom(open) unexpected error: %v", err)
	}
}

func TestStore_CreateRoom_SecretTooLong(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a")
	_, err := s.CreateRoom(CreateParams{Name: "R1", CreatorID: "a", Secret: strings.Repeat("s", 73)})
	if !errors.Is(err, domain.ErrSecretTooLong) {
		t.Fatalf("CreateRoom() error = %v, want ErrSecretTooLong", err)
	}
}

func TestStore_MatchExclusivity(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b")
	mustCreate(t, s, CreateParams{Name: "M1", CreatorID: "a"})

	if _, err := s.CreateRoom(CreateParams{Name: "M2", CreatorID: "a"}); !errors.Is(err, domain.ErrAlreadyInMatch) {
		t.Errorf("second match create error = %v, want ErrAlreadyInMatch", err)
	}

	mustCreate(t, s, CreateParams{Name: "M3", CreatorID: "b"})
	if _, err := joinRoom(s, "M3", "a", "", ""); !errors.Is(err, domain.ErrAlreadyInMatch) {
		t.Errorf("join second match error = %v, want ErrAlreadyInMatch", err)
	}

	// Chat rooms are not limited.
	mustCreate(t, s, CreateParams{Name: "C1", Mode: domain.ModeChat, CreatorID: "a"})
	mustCreate(t, s, CreateParams{Name: "C2", Mode: domain.ModeChat, CreatorID: "a"})
	if got := len(s.Registry().CurrentRooms("a")); got != 3 {
		t.Errorf("CurrentRooms(a) has %d rooms, want 3", got)
	}
}

func TestStore_ChatRoomNeverStarts(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	s := newTestStore(t, DefaultConfig(), ids...)
	mustCreate(t, s, CreateParams{Name: "lounge", Mode: domain.ModeChat, CreatorID: "a"})

	for _, id := range ids[1:] {
		room, err := joinRoom(s, "lounge", id, "", "")
		if err != nil {
			t.Fatalf("JoinRoom(%s) unexpected error: %v", id, err)
		}
		if room.Status != domain.StatusWaiting {
			t.Errorf("chat room Status = %q, want WAITING", room.Status)
		}
	}
}

func TestStore_LeaveRoom(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b", "c")
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a"})
	if _, err := joinRoom(s, "R1", "b", "", ""); err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}

	if _, err := s.LeaveRoom("R1", "c"); !errors.Is(err, domain.ErrNotAMember) {
		t.Errorf("LeaveRoom(non-member) error = %v, want ErrNotAMember", err)
	}
	if _, err := s.LeaveRoom("nope", "a"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("LeaveRoom(missing) error = %v, want ErrRoomNotFound", err)
	}

	dep, err := s.LeaveRoom("R1", "a")
	if err != nil {
		t.Fatalf("LeaveRoom() unexpected error: %v", err)
	}
	if dep.RoomDeleted {
		t.Error("room should survive while a member remains")
	}
	if dep.Room.Status != domain.StatusWaiting {
		t.Errorf("Status after leave = %q, want WAITING", dep.Room.Status)
	}
	if dep.Room.OwnerID != "a" || dep.Room.CreatedBy != "nick-a" {
		t.Errorf("creator after leave = %q/%q, want a/nick-a", dep.Room.OwnerID, dep.Room.CreatedBy)
	}
	if dep.Reason != domain.ReasonLeft {
		t.Errorf("Reason = %q, want %q", dep.Reason, domain.ReasonLeft)
	}
	if got := s.Registry().CurrentRooms("a"); len(got) != 0 {
		t.Errorf("CurrentRooms(a) = %v, want empty", got)
	}

	dep, err = s.LeaveRoom("R1", "b")
	if err != nil {
		t.Fatalf("LeaveRoom() unexpected error: %v", err)
	}
	if !dep.RoomDeleted {
		t.Error("room should be deleted when the last member leaves")
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
}

func TestStore_DeleteRoom(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b")
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a"})
	if _, err := joinRoom(s, "R1", "b", "", ""); err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}

	if _, err := s.DeleteRoom("R1", "b"); !errors.Is(err, domain.ErrNotAuthorized) {
		t.Errorf("DeleteRoom(non-owner) error = %v, want ErrNotAuthorized", err)
	}
	if _, err := s.DeleteRoom("nope", "a"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("DeleteRoom(missing) error = %v, want ErrRoomNotFound", err)
	}

	room, err := s.DeleteRoom("R1", "a")
	if err != nil {
		t.Fatalf("DeleteRoom() unexpected error: %v", err)
	}
	if len(room.Members) != 2 {
		t.Errorf("evicted members = %d, want 2", len(room.Members))
	}
	if s.Count() != 0 {
		t.Errorf("Count() = %d, want 0", s.Count())
	}
	for _, id := range []string{"a", "b"} {
		if got := s.Registry().CurrentRooms(id); len(got) != 0 {
			t.Errorf("CurrentRooms(%s) = %v, want empty", id, got)
		}
	}

	// The name is free again.
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "b"})
}

func TestStore_RemoveConnectionEverywhere(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b")
	mustCreate(t, s, CreateParams{Name: "M1", CreatorID: "a"})
	mustCreate(t, s, CreateParams{Name: "C1", Mode: domain.ModeChat, CreatorID: "a"})
	if _, err := joinRoom(s, "M1", "b", "", ""); err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}

	deps := s.RemoveConnectionEverywhere("a")
	if len(deps) != 2 {
		t.Fatalf("len(departures) = %d, want 2", len(deps))
	}

	byRoom := make(map[string]domain.Departure)
	for _, d := range deps {
		byRoom[d.Room.Name] = d
	}
	if d := byRoom["M1"]; d.RoomDeleted || d.Room.OwnerID != "a" || d.Room.Status != domain.StatusWaiting {
		t.Errorf("M1 departure = %+v, want surviving room still created by a", d)
	}
	if d := byRoom["C1"]; !d.RoomDeleted {
		t.Errorf("C1 departure = %+v, want room deleted", d)
	}
	if s.Registry().Has("a") {
		t.Error("connection should be unregistered")
	}

	if again := s.RemoveConnectionEverywhere("a"); again != nil {
		t.Errorf("second RemoveConnectionEverywhere() = %v, want nil", again)
	}
}

func TestStore_RemoveConnectionEverywhere_DeleteOnOwnerDisconnect(t *testing.T) {
	s := newTestStore(t, Config{DeleteOnOwnerDisconnect: true}, "a", "b")
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "a"})
	if _, err := joinRoom(s, "R1", "b", "", ""); err != nil {
		t.Fatalf("JoinRoom() unexpected error: %v", err)
	}

	deps := s.RemoveConnectionEverywhere("a")
	if len(deps) != 1 {
		t.Fatalf("len(departures) = %d, want 1", len(deps))
	}
	d := deps[0]
	if !d.RoomDeleted || d.Reason != domain.ReasonOwnerLeft {
		t.Errorf("departure = %+v, want owner-left deletion", d)
	}
	if len(d.Room.Members) != 1 || d.Room.Members[0].ConnectionID != "b" {
		t.Errorf("evicted members = %+v, want [b]", d.Room.Members)
	}
	if got := s.Registry().CurrentRooms("b"); len(got) != 0 {
		t.Errorf("CurrentRooms(b) = %v, want empty", got)
	}
}

func TestStore_DeleteRoom_CreatorOnlyAfterLeave(t *testing.T) {
	s := newTestStore(t, Config{DefaultMode: domain.ModeChat}, "a", "b", "c")
	mustCreate(t, s, CreateParams{Name: "lounge", CreatorID: "a"})
	for _, id := range []string{"b", "c"} {
		if _, err := joinRoom(s, "lounge", id, "", ""); err != nil {
			t.Fatalf("joinRoom(%s) unexpected error: %v", id, err)
		}
	}
	if _, err := s.LeaveRoom("lounge", "a"); err != nil {
		t.Fatalf("LeaveRoom() unexpected error: %v", err)
	}

	for _, id := range []string{"b", "c"} {
		if _, err := s.DeleteRoom("lounge", id); !errors.Is(err, domain.ErrNotAuthorized) {
			t.Errorf("DeleteRoom(%s) error = %v, want ErrNotAuthorized", id, err)
		}
	}

	if _, err := joinRoom(s, "lounge", "a", "", ""); err != nil {
		t.Fatalf("rejoin unexpected error: %v", err)
	}
	room, err := s.DeleteRoom("lounge", "a")
	if err != nil {
		t.Fatalf("DeleteRoom(creator) unexpected error: %v", err)
	}
	if room.CreatedBy != "nick-a" || len(room.Members) != 3 {
		t.Errorf("deleted room = %+v, want creator nick-a with 3 members", room)
	}
}

func TestStore_RemoveConnectionEverywhere_NonCreatorKeepsRoom(t *testing.T) {
	s := newTestStore(t, Config{DefaultMode: domain.ModeChat, DeleteOnOwnerDisconnect: true}, "a", "b", "c")
	mustCreate(t, s, CreateParams{Name: "lounge", CreatorID: "a"})
	for _, id := range []string{"b", "c"} {
		if _, err := joinRoom(s, "lounge", id, "", ""); err != nil {
			t.Fatalf("joinRoom(%s) unexpected error: %v", id, err)
		}
	}
	if _, err := s.LeaveRoom("lounge", "a"); err != nil {
		t.Fatalf("LeaveRoom() unexpected error: %v", err)
	}

	deps := s.RemoveConnectionEverywhere("b")
	if len(deps) != 1 {
		t.Fatalf("len(departures) = %d, want 1", len(deps))
	}
	if d := deps[0]; d.RoomDeleted || d.Reason != domain.ReasonDisconnected {
		t.Errorf("departure = %+v, want plain disconnect", d)
	}
	room, err := s.Room("lounge")
	if err != nil {
		t.Fatalf("Room() unexpected error: %v", err)
	}
	if len(room.Members) != 1 || room.Members[0].ConnectionID != "c" {
		t.Errorf("members = %+v, want [c]", room.Members)
	}
}

func TestStore_JoinRoom_SecretBeyondBcryptLimit(t *testing.T) {
	s := newTestStore(t, DefaultConfig(), "a", "b")
	secret := strings.Repeat("k", domain.MaxSecretLength)
	mustCreate(t, s, CreateParams{Name: "vault", CreatorID: "a", Secret: secret})

	if _, err := joinRoom(s, "vault", "b", "", secret+"x"); !errors.Is(err, domain.ErrBadSecret) {
		t.Errorf("joinRoom(73-byte secret) error = %v, want ErrBadSecret", err)
	}
	if _, err := joinRoom(s, "vault", "b", "", secret); err != nil {
		t.Errorf("joinRoom(exact secret) unexpected error: %v", err)
	}
}

func TestStore_SnapshotOrderAndIsolation(t *testing.T) {
	s := newTestStore(t, Config{DefaultMode: domain.ModeChat}, "a")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		mustCreate(t, s, CreateParams{Name: name, CreatorID: "a"})
	}

	rooms := s.Snapshot()
	var names []string
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "zeta,alpha,mid" {
		t.Errorf("Snapshot order = %v, want creation order", names)
	}

	rooms[0].Members[0].Nickname = "mutated"
	again, _ := s.Room("zeta")
	if again.Members[0].Nickname == "mutated" {
		t.Error("Snapshot shares state with the store")
	}

	summaries := s.Summaries()
	if len(summaries) != 3 || summaries[0].Players[0] != "nick-a" {
		t.Errorf("Summaries() = %+v", summaries)
	}
}

func TestStore_ConcurrentJoinsRespectCapacity(t *testing.T) {
	const joiners = 50
	ids := []string{"owner"}
	for i := 0; i < joiners; i++ {
		ids = append(ids, fmt.Sprintf("c%d", i))
	}
	s := newTestStore(t, DefaultConfig(), ids...)
	mustCreate(t, s, CreateParams{Name: "R1", CreatorID: "owner"})

	var (
		mu      sync.Mutex
		success int
		full    int
	)
	var g errgroup.Group
	for _, id := range ids[1:] {
		g.Go(func() error {
			_, err := joinRoom(s, "R1", id, "", "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, domain.ErrRoomFull):
				full++
			default:
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}

	if success != 1 {
		t.Errorf("successful joins = %d, want exactly 1", success)
	}
	if full != joiners-1 {
		t.Errorf("RoomFull rejections = %d, want %d", full, joiners-1)
	}
}

func TestStore_ConcurrentCreateSameName(t *testing.T) {
	const creators = 20
	var ids []string
	for i := 0; i < creators; i++ {
		ids = append(ids, fmt.Sprintf("c%d", i))
	}
	s := newTestStore(t, DefaultConfig(), ids...)

	var (
		mu      sync.Mutex
		winners int
	)
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			_, err := s.CreateRoom(CreateParams{Name: "contested", CreatorID: id})
			if err != nil && !errors.Is(err, domain.ErrRoomAlreadyExists) {
				return err
			}
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if winners != 1 {
		t.Errorf("winners = %d, want 1", winners)
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
}

func TestStore_MembershipMirrorsRegistry(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	s := newTestStore(t, Config{DefaultMode: domain.ModeChat}, ids...)

	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			name := fmt.Sprintf("room-%d", i)
			if _, err := s.CreateRoom(CreateParams{Name: name, CreatorID: id}); err != nil {
				return err
			}
			for _, other := range ids {
				if other == id {
					continue
				}
				if _, err := joinRoom(s, name, other, "", ""); err != nil && !errors.Is(err, domain.ErrUnknownConnection) {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s.RemoveConnectionEverywhere("b")

	for _, room := range s.Snapshot() {
		for _, m := range room.Members {
			found := false
			for _, r := range s.Registry().CurrentRooms(m.ConnectionID) {
				if r == room.Name {
					found = true
				}
			}
			if !found {
				t.Errorf("member %s of %s missing from registry", m.ConnectionID, room.Name)
			}
		}
		if room.HasMember("b") {
			t.Errorf("disconnected connection still in %s", room.Name)
		}
	}
	for _, id := range s.Registry().IDs() {
		for _, name := range s.Registry().CurrentRooms(id) {
			if err := s.CheckMember(name, id); err != nil {
				t.Errorf("registry lists %s in %s but store says %v", id, name, err)
			}
		}
	}
}
