package jwtverify

import (
	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the payload of both token kinds. Subject carries the user id.
type Claims struct {
	Email     string `json:"email"`
	CompanyID Tenant `json:"companyId"`
	TokenType Kind   `json:"token_type"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID string
	Email  string
	Tenant Tenant
}

func (c Claims) Identity() Identity {
	return Identity{
		UserID: c.Subject,
		Email:  c.Email,
		Tenant: c.CompanyID,
	}
}
