package service

import (
	"context"
	"errors"
	"sync"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	"github.com/payrolladmin/payroll/backend/internal/common/db"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/common/resilience"
	companydomain "github.com/payrolladmin/payroll/backend/internal/company/domain"
	companyrepo "github.com/payrolladmin/payroll/backend/internal/company/repository"
	userdomain "github.com/payrolladmin/payroll/backend/internal/user/domain"
	userrepo "github.com/payrolladmin/payroll/backend/internal/user/repository"
)

// CompanyFinder resolves the tenant embedded in issued tokens.
type CompanyFinder interface {
	FindByUserID(ctx context.Context, userID string) (companydomain.Company, error)
}

type Deps struct {
	Users       userrepo.Repository
	Companies   CompanyFinder
	Issuer      *TokenIssuer
	Hasher      commoncrypto.PasswordHasher
	TokenHasher TokenHasher
	IDGenerator commoncrypto.IDGenerator
	Clock       clock.Clock
	Breaker     *resilience.CircuitBreaker
	Retry       db.RetryConfig
	Log         *logger.Logger
}

type AuthService struct {
	users       userrepo.Repository
	companies   CompanyFinder
	issuer      *TokenIssuer
	rotator     *RefreshTokenRotator
	hasher      commoncrypto.PasswordHasher
	idGenerator commoncrypto.IDGenerator
	validator   CredentialValidator
	clock       clock.Clock
	breaker     *resilience.CircuitBreaker
	retry       db.RetryConfig
	log         *logger.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(deps Deps) *AuthService {
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewRealClock()
	}
	log := deps.Log
	if log == nil {
		log = logger.Discard()
	}
	breaker := deps.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{Logger: log, Clock: clk})
	}
	tokenHasher := deps.TokenHasher
	if tokenHasher == nil {
		tokenHasher = commoncrypto.NewTokenHasher(deps.Hasher)
	}

	return &AuthService{
		users:       deps.Users,
		companies:   deps.Companies,
		issuer:      deps.Issuer,
		rotator:     NewRefreshTokenRotator(deps.Users, tokenHasher, breaker, deps.Retry, log),
		hasher:      deps.Hasher,
		idGenerator: deps.IDGenerator,
		validator:   NewCredentialValidator(),
		clock:       clk,
		breaker:     breaker,
		retry:       deps.Retry,
		log:         log,
	}
}

// BreakerIgnoredErrors are repository outcomes that carry no signal about
// database health.
var BreakerIgnoredErrors = []error{
	userrepo.ErrUserNotFound,
	userrepo.ErrEmailAlreadyExists,
	companyrepo.ErrCompanyNotFound,
}

type UserInfo struct {
	ID        string
	Email     string
	CompanyID jwtverify.Tenant
}

type SignupResult struct {
	User    UserInfo
	Message string
}

type LoginResult struct {
	User   UserInfo
	Tokens TokenPair
}

func (s *AuthService) Signup(ctx context.Context, email, password string) (SignupResult, error) {
	email = userdomain.NormalizeEmail(email)
	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "signup_attempt",
	}).Info("signup attempt")

	if err := s.validator.Validate(email, password); err != nil {
		incrementSignups("invalid")
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "signup_validation_failed",
		}).Warnf("signup validation failed: %v", err)
		return SignupResult{}, err
	}

	_, err := s.findByEmail(ctx, email)
	switch {
	case err == nil:
		incrementSignups("conflict")
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "signup_email_in_use",
		}).Warn("signup failed: email in use")
		return SignupResult{}, commonerrors.ErrEmailAlreadyInUse
	case !errors.Is(err, userrepo.ErrUserNotFound):
		incrementSignups("error")
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "signup_lookup_failed",
		}).Errorf("signup failed: %v", err)
		return SignupResult{}, passDomainOr("DB_ERROR", "failed to fetch user", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		incrementSignups("error")
		return SignupResult{}, newInternalError("HASH_FAILED", "failed to hash password", err)
	}

	id, err := s.idGenerator.NewID()
	if err != nil {
		incrementSignups("error")
		return SignupResult{}, newInternalError("ID_GENERATION_FAILED", "failed to generate id", err)
	}

	user := userdomain.User{
		ID:           userdomain.ID(id),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}

	err = s.breaker.Call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, s.log, s.retry, func(ctx context.Context) error {
			return s.users.Create(ctx, user)
		})
	})
	if err != nil {
		if errors.Is(err, userrepo.ErrEmailAlreadyExists) {
			incrementSignups("conflict")
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "signup_email_in_use",
			}).Warn("signup failed: email taken concurrently")
			return SignupResult{}, commonerrors.ErrEmailAlreadyInUse
		}
		incrementSignups("error")
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "signup_create_failed",
		}).Errorf("signup failed: %v", err)
		return SignupResult{}, passDomainOr("DB_ERROR", "failed to create user", err)
	}

	incrementSignups("success")
	s.log.WithFields(ctx, logger.Fields{
		"user_id": id,
		"action":  "signup_success",
	}).Info("signup success")

	return SignupResult{
		User:    UserInfo{ID: id, Email: email, CompanyID: jwtverify.NoTenant()},
		Message: SignupMessage,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = userdomain.NormalizeEmail(email)
	s.log.WithFields(ctx, logger.Fields{
		"email":  email,
		"action": "login_attempt",
	}).Info("login attempt")

	if err := s.validator.ValidateLogin(email, password); err != nil {
		incrementLogins("invalid")
		return LoginResult{}, err
	}

	user, err := s.findByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			s.burnPasswordCompare(password)
			incrementLogins("failure")
			s.log.WithFields(ctx, logger.Fields{
				"email":  email,
				"action": "login_user_not_found",
			}).Warn("login failed: not found")
			return LoginResult{}, commonerrors.ErrInvalidCredentials
		}
		incrementLogins("error")
		s.log.WithFields(ctx, logger.Fields{
			"email":  email,
			"action": "login_fetch_failed",
		}).Errorf("login failed: %v", err)
		return LoginResult{}, passDomainOr("DB_ERROR", "failed to fetch user", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		incrementLogins("failure")
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_invalid_password",
		}).Warn("login failed: invalid password")
		return LoginResult{}, commonerrors.ErrInvalidCredentials
	}

	tenant, err := s.resolveTenant(ctx, string(user.ID))
	if err != nil {
		incrementLogins("error")
		return LoginResult{}, err
	}

	pair, err := s.issuer.IssuePair(Subject{UserID: string(user.ID), Email: user.Email, Tenant: tenant})
	if err != nil {
		incrementLogins("error")
		return LoginResult{}, newInternalError("TOKEN_ISSUE_FAILED", "failed to issue tokens", err)
	}

	if err := s.rotator.Store(ctx, user.ID, pair); err != nil {
		incrementLogins("error")
		s.log.WithFields(ctx, logger.Fields{
			"user_id": string(user.ID),
			"action":  "login_store_refresh_failed",
		}).Errorf("login failed: store refresh hash: %v", err)
		return LoginResult{}, passDomainOr("DB_ERROR", "failed to store session", err)
	}

	incrementLogins("success")
	s.log.WithFields(ctx, logger.Fields{
		"user_id":    string(user.ID),
		"company_id": tenant.String(),
		"action":     "login_success",
	}).Info("login success")

	return LoginResult{
		User:   UserInfo{ID: string(user.ID), Email: user.Email, CompanyID: tenant},
		Tokens: pair,
	}, nil
}

// Refresh exchanges a refresh token, already verified by the Refresh guard,
// for a new pair. The tenant is looked up again so a company created after
// login shows up in the new tokens.
func (s *AuthService) Refresh(ctx context.Context, userID, presented string) (TokenPair, error) {
	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  "refresh_token_attempt",
	}).Info("refresh token attempt")

	if presented == "" || !commoncrypto.IsValidID(userID) {
		incrementRefreshRejected("malformed")
		return TokenPair{}, commonerrors.ErrRefreshNotAllowed
	}

	pair, err := s.rotator.Rotate(ctx, userdomain.ID(userID), presented, func(ctx context.Context, user userdomain.User) (TokenPair, error) {
		tenant, err := s.resolveTenant(ctx, string(user.ID))
		if err != nil {
			return TokenPair{}, err
		}
		issued, err := s.issuer.IssuePair(Subject{UserID: string(user.ID), Email: user.Email, Tenant: tenant})
		if err != nil {
			return TokenPair{}, newInternalError("TOKEN_ISSUE_FAILED", "failed to issue tokens", err)
		}
		return issued, nil
	})
	if err != nil {
		if errors.Is(err, commonerrors.ErrRefreshNotAllowed) {
			return TokenPair{}, err
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "refresh_token_failed",
		}).Errorf("refresh token failed: %v", err)
		return TokenPair{}, passDomainOr("DB_ERROR", "failed to rotate refresh token", err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  "refresh_token_success",
	}).Info("refresh token success")
	return pair, nil
}

// Logout clears the stored refresh hash. Repeating it is harmless.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if !commoncrypto.IsValidID(userID) {
		return commonerrors.ErrUnauthorized
	}

	if err := s.rotator.Clear(ctx, userdomain.ID(userID)); err != nil {
		if errors.Is(err, userrepo.ErrUserNotFound) {
			return commonerrors.ErrUnauthorized
		}
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "logout_failed",
		}).Errorf("logout failed: %v", err)
		return passDomainOr("DB_ERROR", "failed to clear session", err)
	}

	incrementLogouts()
	s.log.WithFields(ctx, logger.Fields{
		"user_id": userID,
		"action":  "logout_success",
	}).Info("logout success")
	return nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (userdomain.User, error) {
	var user userdomain.User
	err := s.breaker.Call(ctx, func(ctx context.Context) error {
		return db.RetryWithBackoff(ctx, s.log, s.retry, func(ctx context.Context) error {
			var err error
			user, err = s.users.FindByEmail(ctx, email)
			return err
		})
	})
	return user, err
}

func (s *AuthService) resolveTenant(ctx context.Context, userID string) (jwtverify.Tenant, error) {
	if s.companies == nil {
		return jwtverify.NoTenant(), nil
	}
	company, err := s.companies.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, companyrepo.ErrCompanyNotFound) {
			return jwtverify.NoTenant(), nil
		}
		return jwtverify.Tenant{}, passDomainOr("DB_ERROR", "failed to fetch company", err)
	}
	return jwtverify.WithTenant(company.ID), nil
}

// burnPasswordCompare spends a bcrypt comparison on unknown emails so the
// response time does not reveal which emails are registered.
func (s *AuthService) burnPasswordCompare(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("payroll-unknown-user")
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(s.dummyHash, password)
	}
}
