package api

import (
	"errors"
	"log"
	"net/url"

	domain "github.com/example/lobby-relay/domain/lobby"
	"github.com/example/lobby-relay/modules/auth"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	// The handshake is authenticated before the upgrade so failures get a plain HTTP status.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", m.authenticateHandshake, websocket.New(m.handleWebSocket))

	api := app.Group("/api/v1")
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:name", m.getRoom)
	api.Get("/stats", m.getStats)
	api.Post("/auth/register", m.register)
	api.Post("/auth/login", m.login)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	details := map[string]any{"module": "api"}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
		details["dropped_frames"] = m.hub.Dropped()
	}
	return c.JSON(HealthResponse{
		Status:  "healthy",
		Details: details,
	})
}

// listRooms handles GET /api/v1/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.lobbyAdapter.ListRooms(c.UserContext())
	if err != nil {
		log.Printf("[api] Failed to list rooms: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list rooms",
		})
	}
	if rooms == nil {
		rooms = []domain.Summary{}
	}
	return c.JSON(RoomListResponse{Rooms: rooms, Count: len(rooms)})
}

// getRoom handles GET /api/v1/rooms/:name.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || domain.ValidateRoomName(name) != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid room name",
		})
	}

	room, err := m.lobbyAdapter.GetRoom(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error:   "not_found",
				Message: "Room not found",
			})
		}
		log.Printf("[api] Failed to get room %q: %v", name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "get_failed",
			Message: "Failed to get room",
		})
	}
	return c.JSON(room)
}

// getStats handles GET /api/v1/stats.
func (m *APIModule) getStats(c *fiber.Ctx) error {
	s, err := m.statsAdapter.GetStats(c.UserContext())
	if err != nil {
		log.Printf("[api] Failed to get stats: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "stats_failed",
			Message: "Failed to get stats",
		})
	}
	return c.JSON(s)
}

// register handles POST /api/v1/auth/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username and password are required",
		})
	}

	account, err := m.authAdapter.Register(c.UserContext(), req.Username, req.Password, req.Nickname)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(AccountResponse{
		ID:        account.ID,
		Username:  account.Username,
		Nickname:  account.Nickname,
		CreatedAt: account.CreatedAt,
	})
}

// login handles POST /api/v1/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Invalid request body",
		})
	}
	if req.Username == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: "Username and password are required",
		})
	}

	token, err := m.authAdapter.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return handleAuthError(c, err)
	}

	return c.JSON(TokenResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   token.ExpiresIn,
		TokenType:   token.TokenType,
	})
}

// handleAuthError maps credential store rejections to HTTP responses without exposing internals.
func handleAuthError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: err.Error(),
		})
	case errors.Is(err, auth.ErrUsernameTaken):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{
			Error:   "conflict",
			Message: err.Error(),
		})
	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, domain.ErrNicknameTooLong),
		errors.Is(err, domain.ErrNicknameInvalid):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "bad_request",
			Message: err.Error(),
		})
	default:
		log.Printf("[api] Internal auth error: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
