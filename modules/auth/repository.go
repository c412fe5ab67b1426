package auth

import (
	"context"
	"errors"

	domain "github.com/example/lobby-relay/domain/user"
	"gorm.io/gorm"
)

var (
	// ErrAccountNotFound is returned when an account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUsernameTaken is returned when the username is already registered.
	ErrUsernameTaken = errors.New("username is already taken")
)

// AccountRepository persists accounts using GORM.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	result := r.db.WithContext(ctx).Create(account)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return result.Error
	}
	return nil
}

// FindByUsername finds an account by username.
func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	var account domain.Account
	result := r.db.WithContext(ctx).First(&account, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, result.Error
	}
	return &account, nil
}

// UsernameExists reports whether the username is registered.
func (r *AccountRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.Account{}).Where("username = ?", username).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Count returns the number of registered accounts.
func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.Account{}).Count(&count)
	return count, result.Error
}
