package cleanup

import (
	"context"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

type ExpiredSessionClearer interface {
	ClearExpiredRefreshHashes(ctx context.Context, now time.Time) (int64, error)
}

// RunOnce clears refresh hashes whose expiry has passed. An expired hash
// could never be used anyway; clearing it keeps HasSession honest.
func RunOnce(ctx context.Context, repo ExpiredSessionClearer, clk clock.Clock, log *logger.Logger) (int64, error) {
	cleared, err := repo.ClearExpiredRefreshHashes(ctx, clk.Now())
	if err != nil {
		log.WithFields(ctx, logger.Fields{"action": "refresh_cleanup_failed"}).Errorf("refresh hash cleanup failed: %v", err)
		return 0, err
	}
	if cleared > 0 {
		metrics.RefreshHashesCleared.Add(float64(cleared))
		log.WithFields(ctx, logger.Fields{
			"action":  "refresh_cleanup",
			"cleared": cleared,
		}).Infof("refresh hash cleanup: cleared %d expired sessions", cleared)
	}
	return cleared, nil
}

// Start runs RunOnce every interval until ctx is done.
func Start(ctx context.Context, repo ExpiredSessionClearer, clk clock.Clock, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = RunOnce(ctx, repo, clk, log)
		}
	}
}
