package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payrolladmin/payroll/backend/internal/auth/service"
	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
)

func newTestIssuer(clk clock.Clock) *service.TokenIssuer {
	return service.NewTokenIssuer(service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
	}, commoncrypto.NewUUIDGenerator(), clk)
}

var testSubject = service.Subject{
	UserID: "2b1c7a0e-8f49-4a8e-9d43-2f5e1c9a7b10",
	Email:  "owner@example.com",
	Tenant: jwtverify.WithTenant("company-1"),
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	pair, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)
	assert.Equal(t, clk.Now().Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, clk.Now().Add(time.Hour), pair.RefreshExpiresAt)

	claims, err := issuer.Verify(jwtverify.KindAccess, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testSubject.UserID, claims.Subject)
	assert.Equal(t, testSubject.Email, claims.Email)
	assert.Equal(t, testSubject.Tenant, claims.CompanyID)
	assert.NotEmpty(t, claims.ID)

	identity := claims.Identity()
	assert.Equal(t, testSubject.UserID, identity.UserID)
}

func TestTokenIssuer_KindsAreNotInterchangeable(t *testing.T) {
	issuer := newTestIssuer(clock.NewRealClock())

	pair, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)

	_, err = issuer.Verify(jwtverify.KindRefresh, pair.AccessToken)
	require.ErrorIs(t, err, commonerrors.ErrInvalidToken)

	_, err = issuer.Verify(jwtverify.KindAccess, pair.RefreshToken)
	require.ErrorIs(t, err, commonerrors.ErrInvalidToken)
}

func TestTokenIssuer_WrongKindClaimSignedWithRightSecret(t *testing.T) {
	issuer := newTestIssuer(clock.NewRealClock())

	// An access-kind payload signed with the refresh secret still fails.
	claims := jwtverify.Claims{
		Email:     testSubject.Email,
		TokenType: jwtverify.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testSubject.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testRefreshSecret))
	require.NoError(t, err)

	_, err = issuer.Verify(jwtverify.KindRefresh, raw)
	require.ErrorIs(t, err, commonerrors.ErrInvalidToken)
}

func TestTokenIssuer_Expiry(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	pair, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)

	clk.Advance(14 * time.Minute)
	_, err = issuer.Verify(jwtverify.KindAccess, pair.AccessToken)
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = issuer.Verify(jwtverify.KindAccess, pair.AccessToken)
	require.ErrorIs(t, err, commonerrors.ErrInvalidToken)

	_, err = issuer.Verify(jwtverify.KindRefresh, pair.RefreshToken)
	require.NoError(t, err)
}

func TestTokenIssuer_RejectsTamperedAndUnsigned(t *testing.T) {
	issuer := newTestIssuer(clock.NewRealClock())

	token, _, err := issuer.Sign(jwtverify.KindAccess, testSubject)
	require.NoError(t, err)

	_, err = issuer.Verify(jwtverify.KindAccess, token+"x")
	require.ErrorIs(t, err, commonerrors.ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwtverify.Claims{
		Email:     testSubject.Email,
		TokenType: jwtverify.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testSubject.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(jwtverify.KindAccess, unsigned)
	require.ErrorIs(t, err, commonerrors.ErrInvalidToken)
}

func TestTokenIssuer_TwoPairsInSameSecondDiffer(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer := newTestIssuer(clk)

	a, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)
	b, err := issuer.IssuePair(testSubject)
	require.NoError(t, err)

	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}

func TestTokenIssuer_NoTenantSerializesAsNull(t *testing.T) {
	issuer := newTestIssuer(clock.NewRealClock())
	subject := testSubject
	subject.Tenant = jwtverify.NoTenant()

	token, _, err := issuer.Sign(jwtverify.KindAccess, subject)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)
	value, present := claims["companyId"]
	assert.True(t, present)
	assert.Nil(t, value)
}
