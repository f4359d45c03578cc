package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "lumelink-test",
	})
	require.NoError(t, err)
	return m
}

func TestNewJWTManager(t *testing.T) {
	t.Run("missing secret for HMAC", func(t *testing.T) {
		_, err := NewJWTManager(&JWTConfig{Algorithm: "HS256"})
		assert.ErrorIs(t, err, ErrSecretKeyEmpty)
	})

	t.Run("defaults applied", func(t *testing.T) {
		m := newTestManager(t)
		assert.Equal(t, "HS256", m.GetConfig().Algorithm)
		assert.Equal(t, 24*time.Hour, m.GetConfig().ExpiresIn)
	})
}

func TestGenerateAndValidate(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateToken(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		Payload:          map[string]any{"device": "app"},
	})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "lumelink-test", claims.Issuer)

	var payload struct {
		Device string `mapstructure:"device"`
	}
	require.NoError(t, claims.Unmarshal(&payload))
	assert.Equal(t, "app", payload.Device)
}

func TestValidateErrors(t *testing.T) {
	m := newTestManager(t)

	t.Run("malformed", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenMalformed)
	})

	t.Run("wrong signature", func(t *testing.T) {
		other, err := NewJWTManager(&JWTConfig{SecretKey: "other-secret"})
		require.NoError(t, err)

		token, err := other.GenerateToken(&Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		})
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := m.GenerateToken(&Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		})
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("algorithm mismatch", func(t *testing.T) {
		// 以 none 算法伪造的 token 必须被拒绝
		forged := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
		})
		tokenString, err := forged.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = m.ValidateToken(tokenString)
		assert.Error(t, err)
	})
}
