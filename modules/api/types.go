package api

import (
	"time"

	domain "github.com/example/lobby-relay/domain/lobby"
)

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []domain.Summary `json:"rooms"`
	Count int              `json:"count"`
}

// RegisterRequest is the API request to create an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

// LoginRequest is the API request to obtain a session token.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AccountResponse is the API response for a created account.
type AccountResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenResponse is the API response for a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
