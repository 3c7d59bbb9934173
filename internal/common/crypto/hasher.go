package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"

	"github.com/payrolladmin/payroll/backend/internal/common/constants"
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error
}

// BcryptHasher hashes with Cost, falling back to constants.PasswordHashCost when zero.
type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: constants.PasswordHashCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = constants.PasswordHashCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash string, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// TokenHasher stores refresh tokens as bcrypt over their sha256 digest.
// Signed tokens are longer than bcrypt's 72 byte input limit and share
// a long common prefix, so the raw token can not be fed to bcrypt.
type TokenHasher struct {
	inner PasswordHasher
}

func NewTokenHasher(inner PasswordHasher) *TokenHasher {
	return &TokenHasher{inner: inner}
}

func (h *TokenHasher) Hash(token string) (string, error) {
	return h.inner.Hash(digest(token))
}

func (h *TokenHasher) Compare(hash string, token string) error {
	return h.inner.Compare(hash, digest(token))
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
