package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"

	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
}

// IsRetryableError covers connection loss, serialization failures,
// deadlocks and lock timeouts.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}

	switch pgErr.Code {
	case "08000", "08003", "08006", "08001", "08004", "08007", "08P01":
		return true
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// RetryWithBackoff runs op until it succeeds, fails with a non-retryable
// error, or MaxAttempts is reached.
func RetryWithBackoff(ctx context.Context, log *logger.Logger, cfg RetryConfig, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.WithFields(ctx, logger.Fields{"attempt": attempt}).Info("database operation succeeded after retry")
			}
			return nil
		}
		lastErr = err

		if !IsRetryableError(err) || attempt == cfg.MaxAttempts {
			break
		}

		log.WithFields(ctx, logger.Fields{
			"attempt": attempt,
			"max":     cfg.MaxAttempts,
			"delay":   delay,
		}).Warnf("database operation failed, retrying: %v", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if IsRetryableError(lastErr) {
		return fmt.Errorf("database operation failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
	}
	return lastErr
}
