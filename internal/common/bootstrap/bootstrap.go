package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"

	authservice "github.com/payrolladmin/payroll/backend/internal/auth/service"
	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	"github.com/payrolladmin/payroll/backend/internal/common/config"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	"github.com/payrolladmin/payroll/backend/internal/common/db"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/common/resilience"
	companyrepo "github.com/payrolladmin/payroll/backend/internal/company/repository"
	companyservice "github.com/payrolladmin/payroll/backend/internal/company/service"
	departmentrepo "github.com/payrolladmin/payroll/backend/internal/department/repository"
	departmentservice "github.com/payrolladmin/payroll/backend/internal/department/service"
	userrepo "github.com/payrolladmin/payroll/backend/internal/user/repository"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config      config.APIConfig
	Log         *logger.Logger
	Clock       clock.Clock
	Pool        *pgxpool.Pool
	Users       *userrepo.PgRepository
	Auth        *authservice.AuthService
	Companies   *companyservice.Service
	Departments *departmentservice.Service
	Guards      *jwtverify.Guards
}

func NewAPIApp(ctx context.Context) (*App, error) {
	log, err := logger.New(os.Getenv("LOG_DIR"), "payroll-api", os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.LoadAPIConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.UsingDevSecrets {
		log.Warn("using development JWT secrets; set JWT_ACCESS_SECRET and JWT_REFRESH_SECRET")
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, log, cfg.DatabaseURL); err != nil {
			return nil, err
		}
	}

	pool, err := db.NewPool(ctx, log, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	return wire(cfg, log, clock.NewRealClock(), pool), nil
}

func wire(cfg config.APIConfig, log *logger.Logger, clk clock.Clock, pool *pgxpool.Pool) *App {
	ids := commoncrypto.NewUUIDGenerator()
	hasher := commoncrypto.NewBcryptHasher()

	users := userrepo.NewPgRepository(pool)
	companies := companyrepo.NewPgRepository(pool)
	departments := departmentrepo.NewPgRepository(pool)

	issuer := authservice.NewTokenIssuer(authservice.TokenConfig{
		AccessSecret:  cfg.AccessSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
	}, ids, clk)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreaker.Threshold,
		Timeout:    cfg.CircuitBreaker.Timeout,
		ResetAfter: cfg.CircuitBreaker.Reset,
		Name:       "auth",
		Logger:     log,
		Clock:      clk,
		Ignore:     authservice.BreakerIgnoredErrors,
	})

	auth := authservice.NewAuthService(authservice.Deps{
		Users:       users,
		Companies:   companies,
		Issuer:      issuer,
		Hasher:      hasher,
		TokenHasher: commoncrypto.NewTokenHasher(hasher),
		IDGenerator: ids,
		Clock:       clk,
		Breaker:     breaker,
		Retry:       db.DefaultRetryConfig,
		Log:         log,
	})

	return &App{
		Config:      cfg,
		Log:         log,
		Clock:       clk,
		Pool:        pool,
		Users:       users,
		Auth:        auth,
		Companies:   companyservice.NewService(companies, ids, clk, log),
		Departments: departmentservice.NewService(departments, ids, clk, log),
		Guards:      jwtverify.NewGuards(issuer.Verifier(), log),
	}
}
