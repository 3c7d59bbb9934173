package service

import (
	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

func incrementSignups(result string) {
	metrics.SignupsTotal.WithLabelValues(result).Inc()
}

func incrementLogins(result string) {
	metrics.LoginsTotal.WithLabelValues(result).Inc()
}

func incrementAccessTokensIssued() {
	metrics.AccessTokensIssued.Inc()
}

func incrementRefreshTokensIssued() {
	metrics.RefreshTokensIssued.Inc()
}

func incrementRefreshTokensUsed() {
	metrics.RefreshTokensUsed.Inc()
}

func incrementRefreshRejected(reason string) {
	metrics.RefreshTokensRejected.WithLabelValues(reason).Inc()
}

func incrementLogouts() {
	metrics.LogoutsTotal.Inc()
}
