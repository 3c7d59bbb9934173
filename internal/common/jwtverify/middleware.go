package jwtverify

import (
	"context"
	"net/http"
	"strings"

	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	commonhttp "github.com/payrolladmin/payroll/backend/internal/common/http"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

type TenantPolicy int

const (
	TenantOptional TenantPolicy = iota
	TenantRequired
)

type contextKey string

const (
	identityKey     contextKey = "jwt_identity"
	refreshTokenKey contextKey = "jwt_refresh_token"
)

type Guards struct {
	verifier *Verifier
	log      *logger.Logger
}

func NewGuards(verifier *Verifier, log *logger.Logger) *Guards {
	return &Guards{verifier: verifier, log: log}
}

// Access admits requests bearing a valid access token.
func (g *Guards) Access(policy TenantPolicy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := g.authenticate(w, r, KindAccess)
			if !ok {
				return
			}

			identity := claims.Identity()
			if policy == TenantRequired && !identity.Tenant.Present() {
				metrics.TenantRejections.Inc()
				g.log.WithFields(r.Context(), logger.Fields{
					"action":  "guard_tenant_required",
					"user_id": identity.UserID,
					"path":    r.URL.Path,
				}).Info("request rejected: no company")
				g.reject(w, r, commonerrors.ErrCompanyRequired)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Refresh admits requests bearing a valid refresh token and makes the raw
// token available to the handler for hash comparison.
func (g *Guards) Refresh() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := g.authenticate(w, r, KindRefresh)
			if !ok {
				return
			}

			raw, _ := bearerToken(r)
			ctx := context.WithValue(r.Context(), identityKey, claims.Identity())
			ctx = context.WithValue(ctx, refreshTokenKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (g *Guards) authenticate(w http.ResponseWriter, r *http.Request, kind Kind) (Claims, bool) {
	raw, ok := bearerToken(r)
	if !ok {
		g.log.WithFields(r.Context(), logger.Fields{
			"action": "guard_missing_token",
			"kind":   string(kind),
			"path":   r.URL.Path,
		}).Warn("jwt auth failed: missing or malformed authorization header")
		g.reject(w, r, commonerrors.ErrMissingToken)
		return Claims{}, false
	}

	claims, err := g.verifier.Verify(kind, raw)
	if err != nil {
		g.log.WithFields(r.Context(), logger.Fields{
			"action": "guard_invalid_token",
			"kind":   string(kind),
			"path":   r.URL.Path,
		}).Warnf("jwt auth failed: %v", err)
		g.reject(w, r, commonerrors.ErrInvalidToken)
		return Claims{}, false
	}
	return claims, true
}

func (g *Guards) reject(w http.ResponseWriter, r *http.Request, err commonerrors.DomainError) {
	commonhttp.WriteErrorEnvelope(w, err.HTTPStatus(), err.Code(), err.Message(), nil, commonhttp.TraceIDFromContext(r.Context()))
}

func bearerToken(r *http.Request) (string, bool) {
	raw := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(raw, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

func FromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func RefreshTokenFromContext(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(refreshTokenKey).(string)
	return raw, ok && raw != ""
}

// ContextWithIdentity is used by tests of handlers that sit behind a guard.
func ContextWithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
