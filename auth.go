package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// AuthResult is the identity attached to a connection after token validation.
type AuthResult struct {
	UserID string
	IsHost bool
}

// TokenValidator turns a bearer token into an identity. Implementations must
// be safe for concurrent use.
type TokenValidator interface {
	Validate(token string) (*AuthResult, error)
}

// hostGroup is the group claim that grants host privileges.
const hostGroup = "trivia-hosts"

type jwtClaims struct {
	Groups []string `json:"groups"`
	jwt.RegisteredClaims
}

// hmacValidator validates HS256 tokens signed with a shared secret. The
// subject claim becomes the user ID.
type hmacValidator struct {
	secret []byte
}

func newHmacValidator(secret string) *hmacValidator {
	return &hmacValidator{secret: []byte(secret)}
}

func (v *hmacValidator) Validate(token string) (*AuthResult, error) {
	claims := &jwtClaims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return &AuthResult{
		UserID: claims.Subject,
		IsHost: slices.Contains(claims.Groups, hostGroup),
	}, nil
}
