package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/lobby-relay/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort is the credential store as seen by other modules.
// Rejections come back as this package's sentinel errors.
type AuthPort interface {
	Register(ctx context.Context, username, password, nickname string) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (*domain.Token, error)
	VerifyCredentials(ctx context.Context, username, password string) (*domain.Identity, error)
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) AuthPort {
	if container == nil {
		panic("auth: ServiceContainer is nil")
	}
	return &AuthAdapter{container: container}
}

// Register creates an account.
func (a *AuthAdapter) Register(ctx context.Context, username, password, nickname string) (*domain.Account, error) {
	req := RegisterRequest{Username: username, Password: password, Nickname: nickname}
	var resp RegisterResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceRegister,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceRegister, err)
	}
	if resp.Code != "" {
		return nil, rejectionError(resp.Code)
	}
	return &domain.Account{
		ID:        resp.ID,
		Username:  resp.Username,
		Nickname:  resp.Nickname,
		CreatedAt: resp.CreatedAt,
	}, nil
}

// Login exchanges credentials for a session token.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	req := LoginRequest{Username: username, Password: password}
	var resp LoginResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceLogin,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceLogin, err)
	}
	if resp.Code != "" {
		return nil, rejectionError(resp.Code)
	}
	return &domain.Token{
		AccessToken: resp.AccessToken,
		ExpiresIn:   resp.ExpiresIn,
		TokenType:   resp.TokenType,
	}, nil
}

// VerifyCredentials resolves a username and password to an identity.
func (a *AuthAdapter) VerifyCredentials(ctx context.Context, username, password string) (*domain.Identity, error) {
	req := VerifyCredentialsRequest{Username: username, Password: password}
	var resp IdentityResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceVerifyCredentials,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceVerifyCredentials, err)
	}
	return resp.identity()
}

// ValidateToken resolves a session token to an identity.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Identity, error) {
	req := ValidateTokenRequest{Token: token}
	var resp IdentityResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceValidateToken,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("%s request failed: %w", ServiceValidateToken, err)
	}
	return resp.identity()
}

func (r IdentityResponse) identity() (*domain.Identity, error) {
	if !r.Valid {
		return nil, rejectionError(r.Code)
	}
	return &domain.Identity{
		AccountID: r.AccountID,
		Username:  r.Username,
		Nickname:  r.Nickname,
	}, nil
}
