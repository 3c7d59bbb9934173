package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authhttp "github.com/payrolladmin/payroll/backend/internal/auth/http"
	"github.com/payrolladmin/payroll/backend/internal/auth/service"
	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	commonhttp "github.com/payrolladmin/payroll/backend/internal/common/http"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

const testUserID = "2b1c7a0e-8f49-4a8e-9d43-2f5e1c9a7b10"

type mockAuthService struct {
	signupFunc  func(ctx context.Context, email, password string) (service.SignupResult, error)
	loginFunc   func(ctx context.Context, email, password string) (service.LoginResult, error)
	refreshFunc func(ctx context.Context, userID, presented string) (service.TokenPair, error)
	logoutFunc  func(ctx context.Context, userID string) error
}

func (m *mockAuthService) Signup(ctx context.Context, email, password string) (service.SignupResult, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, email, password)
	}
	return service.SignupResult{}, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (service.LoginResult, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return service.LoginResult{}, commonerrors.ErrInvalidCredentials
}

func (m *mockAuthService) Refresh(ctx context.Context, userID, presented string) (service.TokenPair, error) {
	if m.refreshFunc != nil {
		return m.refreshFunc(ctx, userID, presented)
	}
	return service.TokenPair{}, commonerrors.ErrRefreshNotAllowed
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, userID)
	}
	return nil
}

type harness struct {
	handler http.Handler
	issuer  *service.TokenIssuer
	svc     *mockAuthService
}

func newHarness() *harness {
	issuer := service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  "http-access-secret-0123456789abcdef",
		RefreshSecret: "http-refresh-secret-0123456789abcdef",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	}, commoncrypto.NewUUIDGenerator(), clock.NewRealClock())
	log := logger.Discard()
	svc := &mockAuthService{}
	guards := jwtverify.NewGuards(issuer.Verifier(), log)
	return &harness{
		handler: authhttp.NewHandler(svc, guards, 5*time.Second, log),
		issuer:  issuer,
		svc:     svc,
	}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) sign(t *testing.T, kind jwtverify.Kind) string {
	t.Helper()
	token, _, err := h.issuer.Sign(kind, service.Subject{
		UserID: testUserID,
		Email:  "owner@example.com",
		Tenant: jwtverify.NoTenant(),
	})
	require.NoError(t, err)
	return token
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) commonhttp.ErrorEnvelope {
	t.Helper()
	var env commonhttp.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestSignup_Created(t *testing.T) {
	h := newHarness()
	h.svc.signupFunc = func(ctx context.Context, email, password string) (service.SignupResult, error) {
		assert.Equal(t, "owner@example.com", email)
		return service.SignupResult{
			User:    service.UserInfo{ID: testUserID, Email: email},
			Message: service.SignupMessage,
		}, nil
	}

	rec := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, testUserID, body.User.ID)
	assert.Equal(t, "Signup successful. Please login to create your company.", body.Message)
}

func TestSignup_BadPayloads(t *testing.T) {
	cases := []struct {
		name string
		body any
	}{
		{"short password", map[string]string{"email": "owner@example.com", "password": "123"}},
		{"bad email", map[string]string{"email": "owner", "password": "password123"}},
		{"unknown field", map[string]string{"email": "owner@example.com", "password": "password123", "role": "admin"}},
		{"not an object", "just a string"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness()
			rec := h.do(t, http.MethodPost, "/api/auth/signup", "", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSignup_Conflict(t *testing.T) {
	h := newHarness()
	h.svc.signupFunc = func(ctx context.Context, email, password string) (service.SignupResult, error) {
		return service.SignupResult{}, commonerrors.ErrEmailAlreadyInUse
	}

	rec := h.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already in use", decodeEnvelope(t, rec).Message)
}

func TestSignup_MethodNotAllowed(t *testing.T) {
	h := newHarness()
	rec := h.do(t, http.MethodGet, "/api/auth/signup", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGuardedRoutes_MethodCheckedBeforeToken(t *testing.T) {
	h := newHarness()

	for _, path := range []string{"/api/auth/refresh", "/api/auth/logout"} {
		rec := h.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
		assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"), path)
	}
}

func TestLogin_ResponseShape(t *testing.T) {
	h := newHarness()
	h.svc.loginFunc = func(ctx context.Context, email, password string) (service.LoginResult, error) {
		return service.LoginResult{
			User:   service.UserInfo{ID: testUserID, Email: email, CompanyID: jwtverify.NoTenant()},
			Tokens: service.TokenPair{AccessToken: "a", RefreshToken: "r"},
		}, nil
	}

	rec := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "a", body["access_token"])
	assert.Equal(t, "r", body["refresh_token"])
	user := body["user"].(map[string]any)
	companyID, present := user["companyId"]
	assert.True(t, present)
	assert.Nil(t, companyID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "password123",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials", decodeEnvelope(t, rec).Message)
}

func TestLogin_ShortPasswordReachesService(t *testing.T) {
	h := newHarness()
	var called bool
	h.svc.loginFunc = func(ctx context.Context, email, password string) (service.LoginResult, error) {
		called = true
		assert.Equal(t, "abc", password)
		return service.LoginResult{}, commonerrors.ErrInvalidCredentials
	}

	rec := h.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "owner@example.com",
		"password": "abc",
	})

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, called)
	assert.Equal(t, "Invalid credentials", decodeEnvelope(t, rec).Message)
}

func TestRefresh_Guarded(t *testing.T) {
	h := newHarness()
	refresh := h.sign(t, jwtverify.KindRefresh)
	h.svc.refreshFunc = func(ctx context.Context, userID, presented string) (service.TokenPair, error) {
		assert.Equal(t, testUserID, userID)
		assert.Equal(t, refresh, presented)
		return service.TokenPair{AccessToken: "new-a", RefreshToken: "new-r"}, nil
	}

	t.Run("missing token", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/auth/refresh", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Missing token", decodeEnvelope(t, rec).Message)
	})

	t.Run("access token rejected", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/auth/refresh", h.sign(t, jwtverify.KindAccess), nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token", decodeEnvelope(t, rec).Message)
	})

	t.Run("refresh token accepted", func(t *testing.T) {
		rec := h.do(t, http.MethodPost, "/api/auth/refresh", refresh, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "new-a", body["access_token"])
		assert.Equal(t, "new-r", body["refresh_token"])
	})
}

func TestRefresh_NotAllowed(t *testing.T) {
	h := newHarness()

	rec := h.do(t, http.MethodPost, "/api/auth/refresh", h.sign(t, jwtverify.KindRefresh), nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Refresh not allowed", decodeEnvelope(t, rec).Message)
}

func TestLogout(t *testing.T) {
	h := newHarness()
	var loggedOut string
	h.svc.logoutFunc = func(ctx context.Context, userID string) error {
		loggedOut = userID
		return nil
	}

	rec := h.do(t, http.MethodPost, "/api/auth/logout", h.sign(t, jwtverify.KindRefresh), nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "refresh token must not authorize logout")

	rec = h.do(t, http.MethodPost, "/api/auth/logout", h.sign(t, jwtverify.KindAccess), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Equal(t, testUserID, loggedOut)
}
