package jwtverify_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonhttp "github.com/payrolladmin/payroll/backend/internal/common/http"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

const (
	accessSecret  = "guard-access-secret-0123456789abcdef"
	refreshSecret = "guard-refresh-secret-0123456789abcdef"
)

func sign(t *testing.T, kind jwtverify.Kind, tenant jwtverify.Tenant) string {
	t.Helper()
	secret := accessSecret
	if kind == jwtverify.KindRefresh {
		secret = refreshSecret
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtverify.Claims{
		Email:     "owner@example.com",
		CompanyID: tenant,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newGuards() *jwtverify.Guards {
	return jwtverify.NewGuards(jwtverify.NewVerifier(accessSecret, refreshSecret, nil), logger.Discard())
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/departments", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) commonhttp.ErrorEnvelope {
	t.Helper()
	var env commonhttp.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func TestAccessGuard(t *testing.T) {
	var seen jwtverify.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = jwtverify.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	optional := newGuards().Access(jwtverify.TenantOptional)(next)
	required := newGuards().Access(jwtverify.TenantRequired)(next)

	t.Run("missing header", func(t *testing.T) {
		rec := serve(optional, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Missing token", envelope(t, rec).Message)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		rec := serve(optional, "Basic "+sign(t, jwtverify.KindAccess, jwtverify.NoTenant()))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Missing token", envelope(t, rec).Message)
	})

	t.Run("refresh token presented", func(t *testing.T) {
		rec := serve(optional, "Bearer "+sign(t, jwtverify.KindRefresh, jwtverify.NoTenant()))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid token", envelope(t, rec).Message)
	})

	t.Run("no company allowed when optional", func(t *testing.T) {
		rec := serve(optional, "bearer "+sign(t, jwtverify.KindAccess, jwtverify.NoTenant()))
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "u-1", seen.UserID)
		assert.False(t, seen.Tenant.Present())
	})

	t.Run("company required", func(t *testing.T) {
		rec := serve(required, "Bearer "+sign(t, jwtverify.KindAccess, jwtverify.NoTenant()))
		require.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Company required", envelope(t, rec).Message)
	})

	t.Run("company present", func(t *testing.T) {
		rec := serve(required, "Bearer "+sign(t, jwtverify.KindAccess, jwtverify.WithTenant("c-1")))
		require.Equal(t, http.StatusNoContent, rec.Code)
		id, ok := seen.Tenant.ID()
		assert.True(t, ok)
		assert.Equal(t, "c-1", id)
	})
}

func TestRefreshGuard_ExposesRawToken(t *testing.T) {
	token := sign(t, jwtverify.KindRefresh, jwtverify.NoTenant())
	var raw string
	h := newGuards().Refresh()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ = jwtverify.RefreshTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := serve(h, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, token, raw)

	rec = serve(h, "Bearer "+sign(t, jwtverify.KindAccess, jwtverify.NoTenant()))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTenantJSON(t *testing.T) {
	type body struct {
		CompanyID jwtverify.Tenant `json:"companyId"`
	}

	raw, err := json.Marshal(body{CompanyID: jwtverify.NoTenant()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"companyId":null}`, string(raw))

	raw, err = json.Marshal(body{CompanyID: jwtverify.WithTenant("c-1")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"companyId":"c-1"}`, string(raw))

	var b body
	require.NoError(t, json.Unmarshal([]byte(`{"companyId":"c-2"}`), &b))
	assert.Equal(t, jwtverify.WithTenant("c-2"), b.CompanyID)

	require.NoError(t, json.Unmarshal([]byte(`{"companyId":null}`), &b))
	assert.False(t, b.CompanyID.Present())

	assert.Error(t, json.Unmarshal([]byte(`{"companyId":42}`), &b))
	assert.Nil(t, jwtverify.NoTenant().Ptr())
	assert.Equal(t, jwtverify.NoTenant(), jwtverify.WithTenant(""))
}
