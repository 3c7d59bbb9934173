package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/payrolladmin/payroll/backend/internal/common/clock"
	commoncrypto "github.com/payrolladmin/payroll/backend/internal/common/crypto"
	"github.com/payrolladmin/payroll/backend/internal/common/jwtverify"
)

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Subject is what both tokens of a pair assert about the caller.
type Subject struct {
	UserID string
	Email  string
	Tenant jwtverify.Tenant
}

type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type TokenIssuer struct {
	secrets     map[jwtverify.Kind][]byte
	ttls        map[jwtverify.Kind]time.Duration
	verifier    *jwtverify.Verifier
	idGenerator commoncrypto.IDGenerator
	clock       clock.Clock
}

func NewTokenIssuer(cfg TokenConfig, idGenerator commoncrypto.IDGenerator, clk clock.Clock) *TokenIssuer {
	return &TokenIssuer{
		secrets: map[jwtverify.Kind][]byte{
			jwtverify.KindAccess:  []byte(cfg.AccessSecret),
			jwtverify.KindRefresh: []byte(cfg.RefreshSecret),
		},
		ttls: map[jwtverify.Kind]time.Duration{
			jwtverify.KindAccess:  cfg.AccessTTL,
			jwtverify.KindRefresh: cfg.RefreshTTL,
		},
		verifier:    jwtverify.NewVerifier(cfg.AccessSecret, cfg.RefreshSecret, clk),
		idGenerator: idGenerator,
		clock:       clk,
	}
}

// Sign produces a compact HS256 token of the given kind. Each token gets a
// fresh jti so two tokens minted in the same second never coincide.
func (ti *TokenIssuer) Sign(kind jwtverify.Kind, subject Subject) (string, time.Time, error) {
	secret, ok := ti.secrets[kind]
	if !ok {
		return "", time.Time{}, fmt.Errorf("unknown token kind %q", kind)
	}

	jti, err := ti.idGenerator.NewID()
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate jti: %w", err)
	}

	now := ti.clock.Now().Truncate(time.Second)
	expiresAt := now.Add(ti.ttls[kind])

	claims := jwtverify.Claims{
		Email:     subject.Email,
		CompanyID: subject.Tenant,
		TokenType: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, expiresAt, nil
}

func (ti *TokenIssuer) Verify(kind jwtverify.Kind, token string) (jwtverify.Claims, error) {
	return ti.verifier.Verify(kind, token)
}

// Verifier is shared with the request guards so both sides accept the same tokens.
func (ti *TokenIssuer) Verifier() *jwtverify.Verifier {
	return ti.verifier
}

func (ti *TokenIssuer) IssuePair(subject Subject) (TokenPair, error) {
	access, accessExp, err := ti.Sign(jwtverify.KindAccess, subject)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := ti.Sign(jwtverify.KindRefresh, subject)
	if err != nil {
		return TokenPair{}, err
	}

	incrementAccessTokensIssued()
	incrementRefreshTokensIssued()

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}
