package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestHmacValidatorAcceptsHostToken(t *testing.T) {
	v := newHmacValidator(testSecret)

	token := signToken(t, jwtClaims{
		Groups: []string{"other", hostGroup},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	auth, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", auth.UserID)
	assert.True(t, auth.IsHost)
}

func TestHmacValidatorNonHostGroup(t *testing.T) {
	v := newHmacValidator(testSecret)

	token := signToken(t, jwtClaims{
		Groups: []string{"players"},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	auth, err := v.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-2", auth.UserID)
	assert.False(t, auth.IsHost)
}

func TestHmacValidatorRejectsBadSignature(t *testing.T) {
	v := newHmacValidator("different-secret")

	token := signToken(t, jwt.RegisteredClaims{Subject: "user-1"})

	_, err := v.Validate(token)
	assert.Error(t, err)
}

func TestHmacValidatorRejectsExpiredToken(t *testing.T) {
	v := newHmacValidator(testSecret)

	token := signToken(t, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})

	_, err := v.Validate(token)
	assert.Error(t, err)
}

func TestHmacValidatorRequiresSubject(t *testing.T) {
	v := newHmacValidator(testSecret)

	token := signToken(t, jwtClaims{
		Groups: []string{hostGroup},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err := v.Validate(token)
	assert.ErrorContains(t, err, "subject")
}

func TestHmacValidatorRejectsGarbage(t *testing.T) {
	v := newHmacValidator(testSecret)

	_, err := v.Validate("not-a-jwt")
	assert.Error(t, err)
}
