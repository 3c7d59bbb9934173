package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_signups_total",
			Help: "Total number of signup attempts by result",
		},
		[]string{"result"},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_logins_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	AccessTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payroll_access_tokens_issued_total",
			Help: "Total number of access tokens issued",
		},
	)

	RefreshTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payroll_refresh_tokens_issued_total",
			Help: "Total number of refresh tokens issued",
		},
	)

	RefreshTokensUsed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payroll_refresh_tokens_used_total",
			Help: "Total number of successful refresh token rotations",
		},
	)

	RefreshTokensRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_refresh_tokens_rejected_total",
			Help: "Total number of refresh attempts rejected by reason",
		},
		[]string{"reason"},
	)

	LogoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payroll_logouts_total",
			Help: "Total number of logouts",
		},
	)

	RefreshHashesCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payroll_refresh_hashes_cleanup_cleared_total",
			Help: "Total number of expired refresh hashes cleared during cleanup",
		},
	)

	JWTValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_jwt_validations_total",
			Help: "Total number of JWT validations by token kind",
		},
		[]string{"kind"},
	)

	JWTValidationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payroll_jwt_validations_failed_total",
			Help: "Total number of failed JWT validations by token kind",
		},
		[]string{"kind"},
	)

	TenantRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payroll_tenant_required_rejections_total",
			Help: "Requests rejected because the caller has no company",
		},
	)
)
