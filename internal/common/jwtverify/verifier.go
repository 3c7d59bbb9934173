package jwtverify

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commonerrors "github.com/payrolladmin/payroll/backend/internal/common/errors"
	"github.com/payrolladmin/payroll/backend/internal/observability/metrics"
)

var (
	errWrongKind      = errors.New("token kind mismatch")
	errMissingSubject = errors.New("missing sub or email claim")
)

type Verifier struct {
	secrets map[Kind][]byte
	clock   clock.Clock
}

func NewVerifier(accessSecret, refreshSecret string, clk clock.Clock) *Verifier {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	return &Verifier{
		secrets: map[Kind][]byte{
			KindAccess:  []byte(accessSecret),
			KindRefresh: []byte(refreshSecret),
		},
		clock: clk,
	}
}

// Verify checks signature, algorithm, expiry and token kind. Every failure
// is reported as ErrInvalidToken with the reason attached as cause.
func (v *Verifier) Verify(kind Kind, tokenString string) (Claims, error) {
	metrics.JWTValidationsTotal.WithLabelValues(string(kind)).Inc()

	claims, err := v.parse(kind, tokenString)
	if err != nil {
		metrics.JWTValidationsFailed.WithLabelValues(string(kind)).Inc()
		return Claims{}, commonerrors.ErrInvalidToken.WithCause(err)
	}
	return claims, nil
}

func (v *Verifier) parse(kind Kind, tokenString string) (Claims, error) {
	secret, ok := v.secrets[kind]
	if !ok {
		return Claims{}, fmt.Errorf("unknown token kind %q", kind)
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.clock.Now),
	)
	if err != nil {
		return Claims{}, err
	}
	if !parsed.Valid {
		return Claims{}, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != kind {
		return Claims{}, errWrongKind
	}
	if claims.Subject == "" || claims.Email == "" {
		return Claims{}, errMissingSubject
	}
	return claims, nil
}
