package lobby

import (
	domain "github.com/example/lobby-relay/domain/lobby"
	"golang.org/x/crypto/bcrypt"
)

// SecretHasher hashes and verifies room access secrets.
type SecretHasher struct {
	cost int
}

// NewSecretHasher creates a SecretHasher. A non-positive cost selects bcrypt.DefaultCost.
func NewSecretHasher(cost int) *SecretHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	return &SecretHasher{cost: cost}
}

// Hash generates a bcrypt hash of the given secret.
func (h *SecretHasher) Hash(secret string) (string, error) {
	if len(secret) > domain.MaxSecretLength {
		return "", domain.ErrSecretTooLong
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify checks if the provided secret matches the hash. Secrets longer
// than MaxSecretLength never match, since bcrypt ignores the excess bytes.
func (h *SecretHasher) Verify(secret, hash string) bool {
	if len(secret) > domain.MaxSecretLength {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
