package auth

import (
	"errors"
	"time"

	lobbydomain "github.com/example/lobby-relay/domain/lobby"
)

// Service names registered by the auth module.
const (
	ServiceRegister          = "register"
	ServiceLogin             = "login"
	ServiceVerifyCredentials = "verify-credentials"
	ServiceValidateToken     = "validate-token"
)

// RegisterRequest represents an account registration request.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
}

// RegisterResponse represents an account registration response.
// A rejected registration carries Code and Error instead of an account.
type RegisterResponse struct {
	ID        string    `json:"id,omitempty"`
	Username  string    `json:"username,omitempty"`
	Nickname  string    `json:"nickname,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	ExpiresIn   int64  `json:"expires_in,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
	Code        string `json:"code,omitempty"`
	Error       string `json:"error,omitempty"`
}

// VerifyCredentialsRequest asks whether a username and password match.
type VerifyCredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// IdentityResponse is the reply to verify-credentials and validate-token.
// A rejected credential is reported with Valid false rather than a service error.
type IdentityResponse struct {
	Valid     bool   `json:"valid"`
	AccountID string `json:"account_id,omitempty"`
	Username  string `json:"username,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Rejection codes carried in service replies.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeUsernameTaken      = "username_taken"
	CodeInvalidUsername    = "invalid_username"
	CodeWeakPassword       = "weak_password"
	CodePasswordTooLong    = "password_too_long"
	CodeNicknameTooLong    = "nickname_too_long"
	CodeNicknameInvalid    = "nickname_invalid"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
)

var rejections = []struct {
	err  error
	code string
}{
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrUsernameTaken, CodeUsernameTaken},
	{ErrInvalidUsername, CodeInvalidUsername},
	{ErrWeakPassword, CodeWeakPassword},
	{ErrPasswordTooLong, CodePasswordTooLong},
	{lobbydomain.ErrNicknameTooLong, CodeNicknameTooLong},
	{lobbydomain.ErrNicknameInvalid, CodeNicknameInvalid},
	{ErrInvalidToken, CodeInvalidToken},
	{ErrExpiredToken, CodeExpiredToken},
}

// rejectionCode returns the code for an expected rejection, or "" for an internal failure.
func rejectionCode(err error) string {
	for _, r := range rejections {
		if errors.Is(err, r.err) {
			return r.code
		}
	}
	return ""
}

// rejectionError maps a code back to its sentinel error.
func rejectionError(code string) error {
	for _, r := range rejections {
		if r.code == code {
			return r.err
		}
	}
	return ErrInvalidCredentials
}
