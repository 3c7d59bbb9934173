package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/common/constants"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	DevAccessSecret  = "access_dev_secret_change_me_0123456789"
	DevRefreshSecret = "refresh_dev_secret_change_me_0123456789"
)

var (
	ErrMissingRequiredEnv = errors.New("missing required environment variable")
	ErrInvalidJWTSecret   = errors.New("JWT secret must be at least 32 bytes")
	ErrDevSecretInUse     = errors.New("development JWT secret is not allowed outside development")
	ErrSharedJWTSecret    = errors.New("access and refresh secrets must differ")
	ErrInvalidTTL         = errors.New("token lifetime must be a positive number of seconds")
	ErrInvalidInterval    = errors.New("interval must be a positive duration")
)

type CircuitBreakerConfig struct {
	Threshold int
	Timeout   time.Duration
	Reset     time.Duration
}

type APIConfig struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	AccessSecret    string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RequestTimeout  time.Duration
	RunMigrations   bool
	CircuitBreaker  CircuitBreakerConfig
	UsingDevSecrets bool
	CleanupInterval time.Duration
	MaxRequestSize  int64
}

func (c APIConfig) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

func LoadAPIConfig() (APIConfig, error) {
	env := strings.ToLower(getEnv("APP_ENV", EnvProduction))

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return APIConfig{}, err
	}

	accessSecret := getEnv("JWT_ACCESS_SECRET", DevAccessSecret)
	refreshSecret := getEnv("JWT_REFRESH_SECRET", DevRefreshSecret)

	usingDev, err := validateSecrets(env, accessSecret, refreshSecret)
	if err != nil {
		return APIConfig{}, err
	}

	accessTTL, err := getSecondsEnv("JWT_ACCESS_EXPIRES_SEC", constants.DefaultAccessTokenTTL)
	if err != nil {
		return APIConfig{}, err
	}
	refreshTTL, err := getSecondsEnv("JWT_REFRESH_EXPIRES_SEC", constants.DefaultRefreshTokenTTL)
	if err != nil {
		return APIConfig{}, err
	}

	cleanupInterval, err := getPositiveDurationEnv("REFRESH_CLEANUP_INTERVAL", constants.RefreshHashCleanupInterval)
	if err != nil {
		return APIConfig{}, err
	}

	return APIConfig{
		Env:             env,
		HTTPPort:        getEnv("API_HTTP_PORT", constants.DefaultAPIHTTPPort),
		DatabaseURL:     databaseURL,
		AccessSecret:    accessSecret,
		RefreshSecret:   refreshSecret,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		RequestTimeout:  getDurationEnv("API_REQUEST_TIMEOUT", constants.DefaultAPIRequestTimeout),
		RunMigrations:   getBoolEnv("RUN_MIGRATIONS", true),
		CircuitBreaker: CircuitBreakerConfig{
			Threshold: getIntEnv("CB_THRESHOLD", constants.DefaultCircuitBreakerThreshold),
			Timeout:   getDurationEnv("CB_TIMEOUT", constants.DefaultCircuitBreakerTimeout),
			Reset:     getDurationEnv("CB_RESET", constants.DefaultCircuitBreakerReset),
		},
		UsingDevSecrets: usingDev,
		CleanupInterval: cleanupInterval,
		MaxRequestSize:  int64(getIntEnv("API_MAX_REQUEST_SIZE", constants.DefaultMaxRequestSize)),
	}, nil
}

// validateSecrets reports whether a development default is in use.
func validateSecrets(env, accessSecret, refreshSecret string) (bool, error) {
	usingDev := accessSecret == DevAccessSecret || refreshSecret == DevRefreshSecret
	if usingDev && env != EnvDevelopment {
		return false, fmt.Errorf("%w (APP_ENV=%s)", ErrDevSecretInUse, env)
	}
	if accessSecret == refreshSecret {
		return false, ErrSharedJWTSecret
	}
	if err := validateJWTSecret("JWT_ACCESS_SECRET", accessSecret); err != nil {
		return false, err
	}
	if err := validateJWTSecret("JWT_REFRESH_SECRET", refreshSecret); err != nil {
		return false, err
	}
	return usingDev, nil
}

func validateJWTSecret(name, secret string) error {
	if len(secret) < constants.JWTSecretMinLength {
		return fmt.Errorf("%w: %s has %d bytes", ErrInvalidJWTSecret, name, len(secret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingRequiredEnv, key)
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getPositiveDurationEnv is for values that end up in a time.Ticker.
func getPositiveDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidInterval, key, v)
	}
	return d, nil
}

// getSecondsEnv reads a whole number of seconds; malformed values are an error.
func getSecondsEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidTTL, key, v)
	}
	return time.Duration(n) * time.Second, nil
}

func getIntEnv(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func getBoolEnv(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

type ClientConfig struct {
	APIURL      string
	TokenDBPath string
	Timeout     time.Duration
}

func LoadClientConfig() (ClientConfig, error) {
	dbPath := getEnv("PAYROLL_TOKEN_DB", "")
	if dbPath == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return ClientConfig{}, fmt.Errorf("resolve config dir: %w", err)
		}
		dbPath = filepath.Join(dir, "payrollctl", constants.ClientTokenDBFileName)
	}

	return ClientConfig{
		APIURL:      strings.TrimRight(getEnv("PAYROLL_API_URL", constants.ClientDefaultAPIURL), "/"),
		TokenDBPath: dbPath,
		Timeout:     getDurationEnv("PAYROLL_TIMEOUT", constants.ClientRequestTimeout),
	}, nil
}
