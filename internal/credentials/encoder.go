package credentials

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordEncoder normalizes a password secret in place, rewriting a
// plaintext password into its hashed form. Encoding is idempotent for
// secrets that already carry a hash: the hashed representation is the
// only one carrying algorithm metadata, so policy checks run after
// encoding.
type PasswordEncoder interface {
	// Encode hashes the secret's plaintext password, if any, and clears
	// the plaintext. Already-hashed and reference-only secrets are left
	// untouched.
	Encode(secret *PasswordSecret) error

	// Matches verifies a candidate password against an encoded secret.
	Matches(secret *PasswordSecret, password string) bool
}

// bcryptEncoder implements PasswordEncoder using bcrypt.
type bcryptEncoder struct {
	cost int
}

// NewBCryptEncoder creates a password encoder that hashes plaintext
// passwords with bcrypt at the given cost. A cost outside bcrypt's
// supported range falls back to the library default.
func NewBCryptEncoder(cost int) PasswordEncoder {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptEncoder{cost: cost}
}

// Encode hashes the secret's plaintext password with bcrypt.
func (e *bcryptEncoder) Encode(secret *PasswordSecret) error {
	if secret == nil || secret.ContainsOnlySecretID() || secret.PasswordPlain == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret.PasswordPlain), e.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	secret.HashFunction = HashFunctionBCrypt
	secret.PasswordHash = string(hash)
	secret.Salt = ""
	secret.PasswordPlain = ""
	return nil
}

// Matches verifies a candidate password against the secret's hash.
func (e *bcryptEncoder) Matches(secret *PasswordSecret, password string) bool {
	if secret == nil || secret.HashFunction != HashFunctionBCrypt || secret.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(secret.PasswordHash), []byte(password)) == nil
}

// BCryptCost extracts the cost factor embedded in a bcrypt hash.
func BCryptCost(passwordHash string) (int, error) {
	if !strings.HasPrefix(passwordHash, "$2") {
		return 0, fmt.Errorf("not a bcrypt hash")
	}
	return bcrypt.Cost([]byte(passwordHash))
}
