package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUser         = "user"
)

// User is the cached projection of the logged in user.
type User struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	CompanyID jwtverify.Tenant `json:"companyId"`
}

type Store struct {
	storage Storage
	clock   clock.Clock
}

func New(storage Storage, clk clock.Clock) *Store {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Store{storage: storage, clock: clk}
}

// SaveTokens stores a fresh session. A nil user leaves the cached
// projection untouched.
func (s *Store) SaveTokens(ctx context.Context, access, refresh string, user *User) error {
	if err := s.storage.Set(ctx, KeyAccessToken, access); err != nil {
		return err
	}
	if err := s.storage.Set(ctx, KeyRefreshToken, refresh); err != nil {
		return err
	}
	if user == nil {
		return nil
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return s.storage.Set(ctx, KeyUser, string(raw))
}

// UpdateTokens stores a rotated pair and keeps the cached user.
func (s *Store) UpdateTokens(ctx context.Context, access, refresh string) error {
	return s.SaveTokens(ctx, access, refresh, nil)
}

func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, KeyRefreshToken)
}

// User returns nil when nothing is cached.
func (s *Store) User(ctx context.Context) (*User, error) {
	raw, err := s.get(ctx, KeyUser)
	if err != nil || raw == "" {
		return nil, err
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode cached user: %w", err)
	}
	return &u, nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.storage.Delete(ctx, KeyAccessToken, KeyRefreshToken, KeyUser)
}

// IsExpiringSoon reports whether token expires within the window. A token
// whose expiry can not be read counts as not expiring.
func (s *Store) IsExpiringSoon(token string, within time.Duration) bool {
	exp, ok := TokenExpiry(token)
	if !ok {
		return false
	}
	return exp.Sub(s.clock.Now()) <= within
}

func (s *Store) get(ctx context.Context, key string) (string, error) {
	v, ok, err := s.storage.Get(ctx, key)
	if err != nil || !ok {
		return "", err
	}
	return v, nil
}

// TokenExpiry reads the exp claim without checking the signature.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
