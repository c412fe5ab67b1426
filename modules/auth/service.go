package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	lobbydomain "github.com/example/lobby-relay/domain/lobby"
	domain "github.com/example/lobby-relay/domain/user"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when a username or password does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidUsername is returned when the username format is invalid.
	ErrInvalidUsername = errors.New("username must be 3-32 letters, digits, '.', '-' or '_'")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,32}$`)

// AuthService handles account registration and credential checks.
type AuthService struct {
	repo   *AccountRepository
	hasher *PasswordHasher
	jwt    *JWTManager
}

// NewAuthService creates a new AuthService.
func NewAuthService(repo *AccountRepository, hasher *PasswordHasher, jwt *JWTManager) *AuthService {
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		jwt:    jwt,
	}
}

// Register creates a new account. An empty nickname defaults to the username.
func (s *AuthService) Register(ctx context.Context, username, password, nickname string) (*domain.Account, error) {
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(password) > 72 {
		return nil, ErrPasswordTooLong
	}
	if nickname == "" {
		nickname = username
	}
	if err := lobbydomain.ValidateNickname(nickname); err != nil {
		return nil, err
	}

	exists, err := s.repo.UsernameExists(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, ErrUsernameTaken
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &domain.Account{
		ID:           uuid.New().String(),
		Username:     username,
		Nickname:     nickname,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// VerifyCredentials checks a username and password and returns the account identity.
func (s *AuthService) VerifyCredentials(ctx context.Context, username, password string) (*domain.Identity, error) {
	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return &domain.Identity{
		AccountID: account.ID,
		Username:  account.Username,
		Nickname:  account.Nickname,
	}, nil
}

// Login verifies credentials and issues a session token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	identity, err := s.VerifyCredentials(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.jwt.Generate(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &domain.Token{
		AccessToken: token,
		ExpiresIn:   s.jwt.TokenDuration(),
		TokenType:   "Bearer",
	}, nil
}

// ValidateToken validates a session token and returns its identity.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Identity, error) {
	return s.jwt.Validate(token)
}
