package user

import (
	"time"
)

// Account is a registered player in the credential store.
type Account struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"uniqueIndex;not null;type:text"`
	Nickname     string `gorm:"not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the Account entity.
func (Account) TableName() string {
	return "accounts"
}

// Token is a signed session token handed out on login.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Identity is what a verified credential or token resolves to.
type Identity struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
}
