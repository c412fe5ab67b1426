package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	domain "github.com/example/lobby-relay/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config configures the credential store.
type Config struct {
	DBPath     string
	BcryptCost int
	JWT        JWTConfig
}

// AuthModule is the optional credential store: accounts in sqlite, bcrypt passwords, JWT session tokens.
type AuthModule struct {
	config  Config
	db      *gorm.DB
	repo    *AccountRepository
	service *AuthService
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule configured from the environment.
func NewModule() *AuthModule {
	return NewModuleWithConfig(loadConfig())
}

// NewModuleWithConfig creates a new AuthModule with an explicit configuration.
func NewModuleWithConfig(config Config) *AuthModule {
	return &AuthModule{config: config}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start opens the database and builds the service.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := gorm.Open(sqlite.Open(m.config.DBPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Account{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.repo = NewAccountRepository(db)
	m.service = NewAuthService(m.repo, NewPasswordHasher(m.config.BcryptCost), NewJWTManager(m.config.JWT))

	log.Printf("[auth] Module started (database: %s)", m.config.DBPath)
	return nil
}

// Stop closes the database.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	accounts, err := m.repo.Count(ctx)
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to count accounts: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.config.DBPath,
			"accounts": accounts,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceRegister, json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceRegister, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceLogin, json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceLogin, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceVerifyCredentials, json.Unmarshal, json.Marshal, m.handleVerifyCredentials,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceVerifyCredentials, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceValidateToken, json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceValidateToken, err)
	}

	log.Printf("[auth] Registered services: %s, %s, %s, %s",
		ServiceRegister, ServiceLogin, ServiceVerifyCredentials, ServiceValidateToken)
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterRequest, _ *mono.Msg) (RegisterResponse, error) {
	account, err := m.service.Register(ctx, req.Username, req.Password, req.Nickname)
	if err != nil {
		if code := rejectionCode(err); code != "" {
			return RegisterResponse{Code: code, Error: err.Error()}, nil
		}
		return RegisterResponse{}, err
	}

	return RegisterResponse{
		ID:        account.ID,
		Username:  account.Username,
		Nickname:  account.Nickname,
		CreatedAt: account.CreatedAt,
	}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginRequest, _ *mono.Msg) (LoginResponse, error) {
	token, err := m.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		if code := rejectionCode(err); code != "" {
			return LoginResponse{Code: code, Error: err.Error()}, nil
		}
		return LoginResponse{}, err
	}

	return LoginResponse{
		AccessToken: token.AccessToken,
		ExpiresIn:   token.ExpiresIn,
		TokenType:   token.TokenType,
	}, nil
}

func (m *AuthModule) handleVerifyCredentials(ctx context.Context, req VerifyCredentialsRequest, _ *mono.Msg) (IdentityResponse, error) {
	identity, err := m.service.VerifyCredentials(ctx, req.Username, req.Password)
	return identityResponse(identity, err)
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (IdentityResponse, error) {
	identity, err := m.service.ValidateToken(ctx, req.Token)
	return identityResponse(identity, err)
}

func identityResponse(identity *domain.Identity, err error) (IdentityResponse, error) {
	if err != nil {
		if code := rejectionCode(err); code != "" {
			return IdentityResponse{Valid: false, Code: code, Error: err.Error()}, nil
		}
		return IdentityResponse{}, err
	}
	return IdentityResponse{
		Valid:     true,
		AccountID: identity.AccountID,
		Username:  identity.Username,
		Nickname:  identity.Nickname,
	}, nil
}

// loadConfig loads the credential store configuration from environment variables.
func loadConfig() Config {
	config := Config{
		DBPath:     "lobby_auth.db",
		BcryptCost: DefaultBcryptCost,
		JWT:        DefaultJWTConfig(),
	}

	if path := os.Getenv("AUTH_DB_PATH"); path != "" {
		config.DBPath = path
	}
	if v := os.Getenv("AUTH_BCRYPT_COST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.BcryptCost = n
		}
	}
	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.JWT.SecretKey = secret
	}
	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.JWT.Issuer = issuer
	}

	return config
}
