package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims *Claims, secret string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateJWT(t *testing.T) {
	now := time.Now()

	t.Run("valid token", func(t *testing.T) {
		tokenString := signToken(t, &Claims{
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}, testSecret)

		claims, err := ValidateJWT(tokenString, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "user-123", claims.Subject)
		assert.Equal(t, "admin", claims.Role)
	})

	t.Run("expired token", func(t *testing.T) {
		tokenString := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
			},
		}, testSecret)

		_, err := ValidateJWT(tokenString, testSecret)
		assert.ErrorContains(t, err, "expired")
	})

	t.Run("wrong secret", func(t *testing.T) {
		tokenString := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-123",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}, "other-secret")

		_, err := ValidateJWT(tokenString, testSecret)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		tokenString := signToken(t, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}, testSecret)

		_, err := ValidateJWT(tokenString, testSecret)
		assert.ErrorContains(t, err, "sub claim")
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := ValidateJWT("", testSecret)
		assert.Error(t, err)
	})
}
