package db

import (
	"context"
	"errors"
	"fmt"

	pgx "github.com/jackc/pgx/v4"
)

type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

type PgTxManager struct {
	db Beginner
}

func NewTxManager(db Beginner) *PgTxManager {
	return &PgTxManager{db: db}
}

// WithTx commits when fn returns nil and rolls back otherwise.
func (m *PgTxManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
