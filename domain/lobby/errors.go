package lobby

import (
	"errors"
	"unicode/utf8"
)

// Validation limits
const (
	MaxRoomNameLength = 100
	MaxNicknameLength = 50
	MaxSecretLength   = 72
)

var (
	// ErrRoomAlreadyExists is returned when a room name is taken.
	ErrRoomAlreadyExists = errors.New("room already exists")
	// ErrRoomNotFound is returned when the named room does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull is returned when a match room has no free slot.
	ErrRoomFull = errors.New("room is full")
	// ErrBadSecret is returned when a room password does not match.
	ErrBadSecret = errors.New("room password does not match")
	// ErrNotAMember is returned when the connection is not in the room.
	ErrNotAMember = errors.New("not a member of the room")
	// ErrNotAuthorized is returned when a non-owner tries to delete a room.
	ErrNotAuthorized = errors.New("only the room creator may do that")
	// ErrAlreadyMember is returned when the connection already joined the room.
	ErrAlreadyMember = errors.New("already a member of the room")
	// ErrAlreadyInMatch is returned when a connection tries to occupy a second match room.
	ErrAlreadyInMatch = errors.New("already playing in another match room")
	// ErrUnknownConnection is returned when the connection is not registered (e.g. already disconnected).
	ErrUnknownConnection = errors.New("connection is not registered")
	// ErrInvalidMode is returned for an unknown room mode.
	ErrInvalidMode = errors.New("invalid room mode")

	ErrRoomNameEmpty   = errors.New("room name cannot be empty")
	ErrRoomNameTooLong = errors.New("room name exceeds maximum length")
	ErrRoomNameInvalid = errors.New("room name contains invalid characters")
	ErrNicknameTooLong = errors.New("nickname exceeds maximum length")
	ErrNicknameInvalid = errors.New("nickname contains invalid characters")
	ErrSecretTooLong   = errors.New("room password must be at most 72 bytes")
)

// Wire error codes reported back to the requesting client.
const (
	CodeRoomAlreadyExists = "RoomAlreadyExists"
	CodeRoomNotFound      = "RoomNotFound"
	CodeRoomFull          = "RoomFull"
	CodeBadSecret         = "BadSecret"
	CodeNotAMember        = "NotAMember"
	CodeNotAuthorized     = "NotAuthorized"
	CodeAlreadyMember     = "AlreadyMember"
	CodeAlreadyInMatch    = "AlreadyInMatch"
	CodeInvalidRequest    = "InvalidRequest"
	CodeRateLimited       = "RateLimited"
	CodeInternal          = "Internal"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrRoomAlreadyExists, CodeRoomAlreadyExists},
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrRoomFull, CodeRoomFull},
	{ErrBadSecret, CodeBadSecret},
	{ErrNotAMember, CodeNotAMember},
	{ErrNotAuthorized, CodeNotAuthorized},
	{ErrAlreadyMember, CodeAlreadyMember},
	{ErrAlreadyInMatch, CodeAlreadyInMatch},
	{ErrInvalidMode, CodeInvalidRequest},
	{ErrRoomNameEmpty, CodeInvalidRequest},
	{ErrRoomNameTooLong, CodeInvalidRequest},
	{ErrRoomNameInvalid, CodeInvalidRequest},
	{ErrNicknameTooLong, CodeInvalidRequest},
	{ErrNicknameInvalid, CodeInvalidRequest},
	{ErrSecretTooLong, CodeInvalidRequest},
}

// Code maps an error to its wire code.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// ValidateRoomName validates a room name. Names are case-sensitive and compared exactly.
func ValidateRoomName(name string) error {
	if name == "" {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLength {
		return ErrRoomNameTooLong
	}
	if !utf8.ValidString(name) {
		return ErrRoomNameInvalid
	}
	return nil
}

// ValidateNickname validates a display nickname. Empty nicknames are allowed
// here; callers substitute a fallback.
func ValidateNickname(nickname string) error {
	if len(nickname) > MaxNicknameLength {
		return ErrNicknameTooLong
	}
	if !utf8.ValidString(nickname) {
		return ErrNicknameInvalid
	}
	return nil
}
