package api

import (
	"context"
	"errors"
	"log"

	domain "github.com/example/lobby-relay/domain/lobby"
	"github.com/example/lobby-relay/modules/broadcast"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	localNickname  = "nickname"
	localAccountID = "account_id"

	anonymousNickname = "anonymous"
)

var errAuthRequired = errors.New("authentication required")

// authenticateHandshake resolves the connecting player's nickname before the upgrade.
// Accepted forms: ?token=<jwt>, ?username=&password=, or ?nickname= when anonymous play is allowed.
func (m *APIModule) authenticateHandshake(c *fiber.Ctx) error {
	nickname, accountID, err := m.resolveIdentity(c.UserContext(),
		c.Query("token"), c.Query("username"), c.Query("password"), c.Query("nickname"))
	if err != nil {
		if errors.Is(err, domain.ErrNicknameTooLong) || errors.Is(err, domain.ErrNicknameInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error:   "bad_request",
				Message: err.Error(),
			})
		}
		if errors.Is(err, errAuthRequired) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: err.Error(),
			})
		}
		return handleAuthError(c, err)
	}

	c.Locals(localNickname, nickname)
	c.Locals(localAccountID, accountID)
	return c.Next()
}

// resolveIdentity returns the session nickname and, for authenticated players, the account id.
func (m *APIModule) resolveIdentity(ctx context.Context, token, username, password, nickname string) (string, string, error) {
	switch {
	case token != "":
		identity, err := m.authAdapter.ValidateToken(ctx, token)
		if err != nil {
			return "", "", err
		}
		return identity.Nickname, identity.AccountID, nil
	case username != "":
		identity, err := m.authAdapter.VerifyCredentials(ctx, username, password)
		if err != nil {
			return "", "", err
		}
		return identity.Nickname, identity.AccountID, nil
	case m.requireAuth:
		return "", "", errAuthRequired
	}

	if nickname == "" {
		nickname = anonymousNickname
	}
	if err := domain.ValidateNickname(nickname); err != nil {
		return "", "", err
	}
	return nickname, "", nil
}

// handleWebSocket runs one session: hub registration, dispatcher connect, then the read loop.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	nickname, _ := c.Locals(localNickname).(string)
	accountID, _ := c.Locals(localAccountID).(string)

	client := broadcast.NewClient(connID, nickname, c, m.sendBuffer)
	if err := m.hub.Register(client); err != nil {
		log.Printf("[api] Rejecting WebSocket client %s: %v", connID, err)
		_ = c.Close()
		return
	}
	defer m.hub.Unregister(client)

	if err := m.dispatcher.Connect(connID, nickname); err != nil {
		log.Printf("[api] Failed to start session %s: %v", connID, err)
		return
	}
	ctx := context.Background()
	defer m.dispatcher.Disconnect(ctx, connID)

	log.Printf("[api] WebSocket client connected: %s (%s, account %q)", connID, nickname, accountID)

	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[api] Client %s closed connection", connID)
			} else {
				log.Printf("[api] Read error from %s: %v", connID, err)
			}
			break
		}

		if err := m.dispatcher.Handle(ctx, connID, frame); err != nil {
			log.Printf("[api] Dropping session %s: %v", connID, err)
			break
		}
	}
}
