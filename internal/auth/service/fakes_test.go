package service_test

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/payrolladmin/payroll/backend/internal/auth/service"
	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	"github.com/payrolladmin/payroll/backend/internal/common/db"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/common/resilience"
	companydomain "github.com/payrolladmin/payroll/backend/internal/company/domain"
	companyrepo "github.com/payrolladmin/payroll/backend/internal/company/repository"
	userdomain "github.com/payrolladmin/payroll/backend/internal/user/domain"
	userrepo "github.com/payrolladmin/payroll/backend/internal/user/repository"
)

const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// memUsers serializes rotations the way SELECT ... FOR UPDATE does.
type memUsers struct {
	mu    sync.Mutex
	users map[userdomain.ID]userdomain.User

	createErr error
	findErr   error
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[userdomain.ID]userdomain.User)}
}

func (m *memUsers) Create(ctx context.Context, user userdomain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return userrepo.ErrEmailAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return userdomain.User{}, m.findErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return userdomain.User{}, userrepo.ErrUserNotFound
}

func (m *memUsers) FindByID(ctx context.Context, id userdomain.ID) (userdomain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return userdomain.User{}, userrepo.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) SetRefreshHash(ctx context.Context, id userdomain.ID, state *userdomain.RefreshState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return userrepo.ErrUserNotFound
	}
	if state == nil {
		u.RefreshTokenHash = nil
		u.RefreshExpiresAt = nil
	} else {
		hash, exp := state.Hash, state.ExpiresAt
		u.RefreshTokenHash = &hash
		u.RefreshExpiresAt = &exp
	}
	m.users[id] = u
	return nil
}

func (m *memUsers) RotateRefreshHash(ctx context.Context, id userdomain.ID, rotate userrepo.RotateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return userrepo.ErrUserNotFound
	}
	state, err := rotate(ctx, u)
	if err != nil {
		return err
	}
	hash, exp := state.Hash, state.ExpiresAt
	u.RefreshTokenHash = &hash
	u.RefreshExpiresAt = &exp
	m.users[id] = u
	return nil
}

func (m *memUsers) ClearExpiredRefreshHashes(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.users {
		if u.RefreshExpiresAt != nil && u.RefreshExpiresAt.Before(now) {
			u.RefreshTokenHash = nil
			u.RefreshExpiresAt = nil
			m.users[id] = u
			n++
		}
	}
	return n, nil
}

func (m *memUsers) storedHash(id string) *string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userdomain.ID(id)].RefreshTokenHash
}

type memCompanies struct {
	mu     sync.Mutex
	byUser map[string]companydomain.Company
}

func newMemCompanies() *memCompanies {
	return &memCompanies{byUser: make(map[string]companydomain.Company)}
}

func (m *memCompanies) FindByUserID(ctx context.Context, userID string) (companydomain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byUser[userID]
	if !ok {
		return companydomain.Company{}, companyrepo.ErrCompanyNotFound
	}
	return c, nil
}

func (m *memCompanies) put(userID, companyID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[userID] = companydomain.Company{ID: companyID, UserID: userID}
}

type fixture struct {
	svc       *service.AuthService
	issuer    *service.TokenIssuer
	users     *memUsers
	companies *memCompanies
	clock     *clock.MockClock
}

func newFixture() *fixture {
	users := newMemUsers()
	companies := newMemCompanies()
	clk := clock.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	hasher := &commoncrypto.BcryptHasher{Cost: bcrypt.MinCost}

	issuer := service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    30 * 24 * time.Hour,
	}, commoncrypto.NewUUIDGenerator(), clk)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  2,
		ResetAfter: time.Minute,
		Clock:      clk,
		Ignore:     service.BreakerIgnoredErrors,
	})

	svc := service.NewAuthService(service.Deps{
		Users:       users,
		Companies:   companies,
		Issuer:      issuer,
		Hasher:      hasher,
		TokenHasher: commoncrypto.NewTokenHasher(hasher),
		IDGenerator: commoncrypto.NewUUIDGenerator(),
		Clock:       clk,
		Breaker:     breaker,
		Retry:       db.RetryConfig{MaxAttempts: 1},
		Log:         logger.Discard(),
	})

	return &fixture{svc: svc, issuer: issuer, users: users, companies: companies, clock: clk}
}
