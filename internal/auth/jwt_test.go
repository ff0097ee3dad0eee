package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager() *JWTManager {
	return NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 7*24*time.Hour)
}

func TestAccessToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateAccessToken(7, "susan")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "susan", claims.Username)
	assert.Equal(t, "marketplace", claims.Issuer)
	assert.Equal(t, "7", claims.Subject)
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	m := newTestManager()

	token, err := m.GenerateRefreshToken(7)
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	m := newTestManager()
	other := NewJWTManager("a-completely-different-secret", 15*time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(7, "susan")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	m := NewJWTManager("test-secret-key-for-testing", -time.Minute, time.Hour)

	token, err := m.GenerateAccessToken(7, "susan")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	m := newTestManager()
	_, err := m.ValidateAccessToken("not.a.jwt")
	assert.Error(t, err)
}

func TestValidateRefreshToken_AccessTokenRejectedOnlyIfMalformed(t *testing.T) {
	// Refresh claims are a subset of access claims, so an access token parses
	// as a refresh token. Services must keep the two token strings separate.
	m := newTestManager()

	access, err := m.GenerateAccessToken(7, "susan")
	require.NoError(t, err)

	claims, err := m.ValidateRefreshToken(access)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
}
