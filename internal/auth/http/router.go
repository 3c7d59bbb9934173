package http

import (
	"context"
	"net/http"
	"time"

	"github.com/payrolladmin/payroll/backend/internal/auth/service"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	commonhttp "github.com/payrolladmin/payroll/backend/internal/common/http"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

type AuthService interface {
	Signup(ctx context.Context, email, password string) (service.SignupResult, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	Refresh(ctx context.Context, userID, presented string) (service.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginUserResponse struct {
	ID        string           `json:"id"`
	Email     string           `json:"email"`
	CompanyID jwtverify.Tenant `json:"companyId"`
}

type signupResponse struct {
	User    userResponse `json:"user"`
	Message string       `json:"message"`
}

type loginResponse struct {
	User         loginUserResponse `json:"user"`
	AccessToken  string            `json:"access_token"`
	RefreshToken string            `json:"refresh_token"`
}

type tokensResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type logoutResponse struct {
	Success bool `json:"success"`
}

type Handler struct {
	auth    AuthService
	guards  *jwtverify.Guards
	timeout time.Duration
	log     *logger.Logger
}

// NewHandler serves /api/auth/*. Refresh sits behind the refresh guard,
// logout behind the access guard.
func NewHandler(auth AuthService, guards *jwtverify.Guards, requestTimeout time.Duration, log *logger.Logger) http.Handler {
	h := &Handler{auth: auth, guards: guards, timeout: requestTimeout, log: log}

	timeout := commonhttp.WithTimeout(h.timeout)
	post := func(next http.Handler) http.HandlerFunc {
		return commonhttp.RequireMethod(http.MethodPost)(next.ServeHTTP)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/auth/signup", post(timeout(h.signup)))
	mux.Handle("/api/auth/login", post(timeout(h.login)))
	mux.Handle("/api/auth/refresh", post(guards.Refresh()(timeout(h.refresh))))
	mux.Handle("/api/auth/logout", post(guards.Access(jwtverify.TenantOptional)(timeout(h.logout))))
	return mux
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "signup_bad_request"}).Warnf("signup failed: %v", err)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	result, err := h.auth.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusCreated, signupResponse{
		User:    userResponse{ID: result.User.ID, Email: result.User.Email},
		Message: result.Message,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := commonhttp.DecodeAndValidate(r, &req); err != nil {
		h.log.WithFields(r.Context(), logger.Fields{"action": "login_bad_request"}).Warnf("login failed: %v", err)
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, loginResponse{
		User: loginUserResponse{
			ID:        result.User.ID,
			Email:     result.User.Email,
			CompanyID: result.User.CompanyID,
		},
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.FromContext(r.Context())
	raw, hasRaw := jwtverify.RefreshTokenFromContext(r.Context())
	if !ok || !hasRaw {
		commonhttp.HandleError(w, r, commonerrors.ErrRefreshNotAllowed, h.log)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), identity.UserID, raw)
	if err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, tokensResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := jwtverify.FromContext(r.Context())
	if !ok {
		commonhttp.HandleError(w, r, commonerrors.ErrUnauthorized, h.log)
		return
	}

	if err := h.auth.Logout(r.Context(), identity.UserID); err != nil {
		commonhttp.HandleError(w, r, err, h.log)
		return
	}

	commonhttp.WriteJSON(w, http.StatusOK, logoutResponse{Success: true})
}
