package constants

import "time"

const (
	EmailMaxLength     = 254
	PasswordMinLength  = 6
	PasswordMaxLength  = 72
	JWTSecretMinLength = 32

	CompanyNameMaxLength         = 200
	DepartmentNameMinLength      = 2
	DepartmentNameMaxLength      = 100
	DepartmentDescriptionMaxSize = 500

	DefaultMaxRequestSize = 1 << 20

	PasswordHashCost = 10

	DBPoolMaxOpenConns    = 20
	DBPoolMinOpenConns    = 2
	DBPoolConnMaxLifetime = 5 * time.Minute
	DBPoolConnMaxIdleTime = 10 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 15 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultAPIHTTPPort = "3333"

	DefaultCircuitBreakerThreshold = 50
	DefaultCircuitBreakerTimeout   = 5 * time.Second
	DefaultCircuitBreakerReset     = 10 * time.Second

	DefaultAPIRequestTimeout = 5 * time.Second
	DefaultAccessTokenTTL    = 900 * time.Second
	DefaultRefreshTokenTTL   = 2592000 * time.Second

	RefreshHashCleanupInterval = 1 * time.Hour

	AuthRateLimitRPS   = 5
	AuthRateLimitBurst = 10
	APIRateLimitRPS    = 50
	APIRateLimitBurst  = 100

	ClientRequestTimeout  = 20 * time.Second
	ClientRefreshWindow   = 30 * time.Second
	ClientDefaultAPIURL   = "http://localhost:3333/api"
	ClientTokenDBFileName = "tokens.db"

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
