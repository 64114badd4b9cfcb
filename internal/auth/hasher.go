// Package auth holds the password hasher and the authentication/authorization gate.
package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// PasswordHasher provides one-way password hashing and verification.
type PasswordHasher interface {
	// Hash produces a self-describing hash of the password.
	Hash(password string) (string, error)

	// Verify reports whether password matches hash. A malformed hash never matches.
	Verify(password, hash string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher. Costs outside bcrypt's range fall back to DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash produces a bcrypt hash of the password; cost and salt are embedded in the output.
func (h *BcryptHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify checks the password against a stored bcrypt hash.
func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
