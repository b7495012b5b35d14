package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haruki/slidegen/internal/config"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing",
		ExpirationHours: 1,
	}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	service := NewJWTService(testJWTConfig())

	token, err := service.GenerateToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "slide-agent", claims.Subject)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestJWTService_ValidateEmptyToken(t *testing.T) {
	service := NewJWTService(testJWTConfig())

	_, err := service.ValidateToken("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestJWTService_ValidateMalformedToken(t *testing.T) {
	service := NewJWTService(testJWTConfig())

	_, err := service.ValidateToken("not.a.jwt")
	require.Error(t, err)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	service := NewJWTService(testJWTConfig())
	token, err := service.GenerateToken()
	require.NoError(t, err)

	other := NewJWTService(&config.JWTConfig{
		Secret:          "a-completely-different-secret",
		ExpirationHours: 1,
	})
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestJWTService_RejectsExpiredToken(t *testing.T) {
	service := NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-key-for-jwt-signing",
		ExpirationHours: -1,
	})

	token, err := service.GenerateToken()
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
