package auth

import (
	"errors"
	"time"

	domain "github.com/example/lobby-relay/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when the token is invalid.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

const sessionTokenType = "session"

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	SecretKey     string
	TokenDuration time.Duration
	Issuer        string
}

// DefaultJWTConfig returns the development JWT configuration.
// JWT_SECRET_KEY must be set in production.
func DefaultJWTConfig() JWTConfig {
	return JWTConfig{
		SecretKey:     "lobby-relay-dev-secret-change-me",
		TokenDuration: 24 * time.Hour,
		Issuer:        "lobby-relay",
	}
}

// SessionClaims are the claims carried by a session token.
type SessionClaims struct {
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates session tokens.
type JWTManager struct {
	config JWTConfig
	now    func() time.Time
}

// NewJWTManager creates a new JWTManager with the given configuration.
func NewJWTManager(config JWTConfig) *JWTManager {
	return &JWTManager{
		config: config,
		now:    time.Now,
	}
}

// Generate signs a session token for the identity.
func (m *JWTManager) Generate(identity *domain.Identity) (string, error) {
	now := m.now()
	claims := SessionClaims{
		Username:  identity.Username,
		Nickname:  identity.Nickname,
		TokenType: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   identity.AccountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.config.SecretKey))
}

// Validate parses the token and returns the identity it carries.
func (m *JWTManager) Validate(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(m.config.SecretKey), nil
	},
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.TokenType != sessionTokenType || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &domain.Identity{
		AccountID: claims.Subject,
		Username:  claims.Username,
		Nickname:  claims.Nickname,
	}, nil
}

// TokenDuration returns the token lifetime in seconds.
func (m *JWTManager) TokenDuration() int64 {
	return int64(m.config.TokenDuration.Seconds())
}
