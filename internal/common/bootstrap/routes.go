package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	authhttp "github.com/payrolladmin/payroll/backend/internal/auth/http"
	"github.com/payrolladmin/payroll/backend/internal/common/constants"
	commonhttp "github.com/payrolladmin/payroll/backend/internal/common/http"
	companyhttp "github.com/payrolladmin/payroll/backend/internal/company/http"
	departmenthttp "github.com/payrolladmin/payroll/backend/internal/department/http"
)

// Handler mounts every route behind the shared middleware stack. The
// returned limiter must be closed on shutdown.
func (a *App) Handler() (http.Handler, *commonhttp.PathRateLimiter) {
	timeout := a.Config.RequestTimeout

	var pinger commonhttp.Pinger
	if a.Pool != nil {
		pinger = a.Pool
	}

	auth := authhttp.NewHandler(a.Auth, a.Guards, timeout, a.Log)
	company := companyhttp.NewHandler(a.Companies, a.Guards, timeout, a.Log)
	departments := departmenthttp.NewHandler(a.Departments, a.Guards, timeout, a.Log)

	mux := http.NewServeMux()
	mux.Handle("/health", commonhttp.HealthHandler(a.Log, pinger))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/auth/", auth)
	mux.Handle("/api/company", company)
	mux.Handle("/api/company/", company)
	mux.Handle("/api/departments", departments)
	mux.Handle("/api/departments/", departments)

	authRule := commonhttp.RateRule{
		Name:              "auth",
		RequestsPerSecond: constants.AuthRateLimitRPS,
		Burst:             constants.AuthRateLimitBurst,
	}
	limiter := commonhttp.NewPathRateLimiter(commonhttp.RateRule{
		Name:              "general",
		RequestsPerSecond: constants.APIRateLimitRPS,
		Burst:             constants.APIRateLimitBurst,
	}, map[string]commonhttp.RateRule{
		"/api/auth/signup":  authRule,
		"/api/auth/login":   authRule,
		"/api/auth/refresh": authRule,
	})

	limited := limiter.Middleware("/health", "/metrics")(mux)
	return commonhttp.BuildBaseHandler(a.Log, a.Config.MaxRequestSize, limited), limiter
}
