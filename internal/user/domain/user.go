package domain

import (
	"strings"
	"time"
)

type ID string

type User struct {
	ID               ID
	Email            string
	PasswordHash     string
	RefreshTokenHash *string
	RefreshExpiresAt *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasSession is false once the user logged out or never logged in.
func (u User) HasSession() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

// RefreshState is what gets persisted for the refresh token currently
// allowed to rotate.
type RefreshState struct {
	Hash      string
	ExpiresAt time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
