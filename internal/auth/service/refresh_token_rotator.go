package service

import (
	"context"
	"errors"

	"github.com/payrolladmin/payroll/backend/internal/common/db"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/common/resilience"
	userdomain "github.com/payrolladmin/payroll/backend/internal/user/domain"
	userrepo "github.com/payrolladmin/payroll/backend/internal/user/repository"
)

type TokenHasher interface {
	Hash(token string) (string, error)
	Compare(hash string, token string) error
}

// IssueFunc mints the replacement pair for a user whose presented refresh
// token matched.
type IssueFunc func(ctx context.Context, user userdomain.User) (TokenPair, error)

// RefreshTokenRotator owns the stored refresh hash: it is the only writer
// of users.refresh_token_hash.
type RefreshTokenRotator struct {
	users   userrepo.Repository
	hasher  TokenHasher
	breaker *resilience.CircuitBreaker
	retry   db.RetryConfig
	log     *logger.Logger
}

func NewRefreshTokenRotator(
	users userrepo.Repository,
	hasher TokenHasher,
	breaker *resilience.CircuitBreaker,
	retry db.RetryConfig,
	log *logger.Logger,
) *RefreshTokenRotator {
	return &RefreshTokenRotator{
		users:   users,
		hasher:  hasher,
		breaker: breaker,
		retry:   retry,
		log:     log,
	}
}

// Store replaces whatever refresh hash the user had with the one of pair.
func (r *RefreshTokenRotator) Store(ctx context.Context, userID userdomain.ID, pair TokenPair) error {
	hash, err := r.hasher.Hash(pair.RefreshToken)
	if err != nil {
		return newInternalError("REFRESH_HASH_FAILED", "failed to hash refresh token", err)
	}

	state := &userdomain.RefreshState{Hash: hash, ExpiresAt: pair.RefreshExpiresAt}
	return r.write(ctx, func(ctx context.Context) error {
		return r.users.SetRefreshHash(ctx, userID, state)
	})
}

// Clear drops the stored hash so no refresh token of the user is accepted.
func (r *RefreshTokenRotator) Clear(ctx context.Context, userID userdomain.ID) error {
	return r.write(ctx, func(ctx context.Context) error {
		return r.users.SetRefreshHash(ctx, userID, nil)
	})
}

// Rotate verifies presented against the stored hash under the user's row
// lock and, on match, stores the hash of the pair returned by issue.
func (r *RefreshTokenRotator) Rotate(ctx context.Context, userID userdomain.ID, presented string, issue IssueFunc) (TokenPair, error) {
	var pair TokenPair

	err := r.write(ctx, func(ctx context.Context) error {
		return r.users.RotateRefreshHash(ctx, userID, func(ctx context.Context, user userdomain.User) (userdomain.RefreshState, error) {
			if !user.HasSession() {
				incrementRefreshRejected("no_session")
				r.log.WithFields(ctx, logger.Fields{
					"user_id": string(userID),
					"action":  "refresh_no_session",
				}).Warn("refresh rejected: no active session")
				return userdomain.RefreshState{}, commonerrors.ErrRefreshNotAllowed
			}

			if err := r.hasher.Compare(*user.RefreshTokenHash, presented); err != nil {
				incrementRefreshRejected("mismatch")
				r.log.WithFields(ctx, logger.Fields{
					"user_id": string(userID),
					"action":  "refresh_hash_mismatch",
				}).Warn("refresh rejected: token does not match stored hash")
				return userdomain.RefreshState{}, commonerrors.ErrRefreshNotAllowed
			}

			issued, err := issue(ctx, user)
			if err != nil {
				return userdomain.RefreshState{}, err
			}

			hash, err := r.hasher.Hash(issued.RefreshToken)
			if err != nil {
				return userdomain.RefreshState{}, newInternalError("REFRESH_HASH_FAILED", "failed to hash refresh token", err)
			}

			pair = issued
			return userdomain.RefreshState{Hash: hash, ExpiresAt: issued.RefreshExpiresAt}, nil
		})
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			incrementRefreshRejected("unknown_user")
			return TokenPair{}, commonerrors.ErrRefreshNotAllowed
		}
		return TokenPair{}, err
	}

	incrementRefreshTokensUsed()
	return pair, nil
}

func (r *RefreshTokenRotator) write(ctx context.Context, op func(ctx context.Context) error) error {
	return r.breaker.Call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, r.log, r.retry, op)
	})
}
