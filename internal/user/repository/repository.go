package repository

import (
	"context"
	"errors"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/db"
	"github.com/payrolladmin/payroll/backend/internal/user/domain"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

// RotateFunc receives the locked user row and returns the state to store.
// Returning an error aborts the rotation and nothing is written.
type RotateFunc func(ctx context.Context, user domain.User) (domain.RefreshState, error)

type Repository interface {
	Create(ctx context.Context, user domain.User) error
	FindByEmail(ctx context.Context, email string) (domain.User, error)
	FindByID(ctx context.Context, id domain.ID) (domain.User, error)
	// SetRefreshHash overwrites the stored hash; nil clears it.
	SetRefreshHash(ctx context.Context, id domain.ID, state *domain.RefreshState) error
	RotateRefreshHash(ctx context.Context, id domain.ID, rotate RotateFunc) error
	ClearExpiredRefreshHashes(ctx context.Context, now time.Time) (int64, error)
}

const selectUser = `SELECT id, email, password_hash, refresh_token_hash, refresh_expires_at, created_at, updated_at FROM users`

type PgRepository struct {
	db    db.Beginner
	txMgr db.TxManager
}

func NewPgRepository(conn db.Beginner) *PgRepository {
	return &PgRepository{
		db:    conn,
		txMgr: db.NewTxManager(conn),
	}
}

func (r *PgRepository) Create(ctx context.Context, user domain.User) error {
	start := time.Now()
	_, err := r.db.Exec(
		ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES ($1, $2, $3, $4, $4)`,
		string(user.ID),
		user.Email,
		user.PasswordHash,
		user.CreatedAt,
	)
	if db.IsUniqueViolation(err, "users_email_key") {
		db.MeasureQueryDuration("create user", start)
		return ErrEmailAlreadyExists
	}
	return db.HandleExecError(err, "create user", start)
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (domain.User, error) {
	start := time.Now()
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE email = $1`, email))
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by email", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) FindByID(ctx context.Context, id domain.ID) (domain.User, error) {
	start := time.Now()
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, string(id)))
	if err := db.HandleQueryError(err, ErrUserNotFound, "find user by id", start); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (r *PgRepository) SetRefreshHash(ctx context.Context, id domain.ID, state *domain.RefreshState) error {
	return setRefreshHash(ctx, r.db, id, state, "set user refresh hash")
}

// RotateRefreshHash serializes concurrent refreshes of one user on the row lock.
func (r *PgRepository) RotateRefreshHash(ctx context.Context, id domain.ID, rotate RotateFunc) error {
	return r.txMgr.WithTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		start := time.Now()
		user, err := scanUser(tx.QueryRow(ctx, selectUser+` WHERE id = $1 FOR UPDATE`, string(id)))
		if err := db.HandleQueryError(err, ErrUserNotFound, "lock user for refresh", start); err != nil {
			return err
		}

		state, err := rotate(ctx, user)
		if err != nil {
			return err
		}

		return setRefreshHash(ctx, tx, id, &state, "rotate user refresh hash")
	})
}

func (r *PgRepository) ClearExpiredRefreshHashes(ctx context.Context, now time.Time) (int64, error) {
	start := time.Now()
	tag, err := r.db.Exec(
		ctx,
		`UPDATE users SET refresh_token_hash = NULL, refresh_expires_at = NULL, updated_at = NOW()
		 WHERE refresh_token_hash IS NOT NULL AND refresh_expires_at < $1`,
		now,
	)
	if err := db.HandleExecError(err, "clear expired refresh hashes", start); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func setRefreshHash(ctx context.Context, conn db.DBTX, id domain.ID, state *domain.RefreshState, operation string) error {
	var hash, expiresAt interface{}
	if state != nil {
		hash = state.Hash
		expiresAt = state.ExpiresAt
	}

	start := time.Now()
	tag, err := conn.Exec(
		ctx,
		`UPDATE users SET refresh_token_hash = $2, refresh_expires_at = $3, updated_at = NOW() WHERE id = $1`,
		string(id),
		hash,
		expiresAt,
	)
	if err := db.HandleExecError(err, operation, start); err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		id   string
		user domain.User
	)
	err := row.Scan(
		&id,
		&user.Email,
		&user.PasswordHash,
		&user.RefreshTokenHash,
		&user.RefreshExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, err
	}
	user.ID = domain.ID(id)
	return user, nil
}
