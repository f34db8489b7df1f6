package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)

	token, err := ti.GenerateToken("64b000000000000000000001", "asha@example.com")
	require.NoError(t, err)

	claims, err := ti.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "64b000000000000000000001", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateToken_Expired(t *testing.T) {
	ti, err := NewTokenIssuer("secret", time.Hour)
	require.NoError(t, err)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := ti.GenerateToken("u1", "asha@example.com")
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestValidateToken_WrongSecret(t *testing.T) {
	a, _ := NewTokenIssuer("secret-a", time.Hour)
	b, _ := NewTokenIssuer("secret-b", time.Hour)

	token, err := a.GenerateToken("u1", "asha@example.com")
	require.NoError(t, err)

	_, err = b.ValidateToken(token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwt.ErrTokenExpired))
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("", time.Hour)
	assert.Error(t, err)
}
