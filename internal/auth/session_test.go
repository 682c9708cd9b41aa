package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession_ExpiresIn(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tr := tokenResponse{
		AccessToken:  "opaque",
		RefreshToken: "r1",
		ExpiresIn:    3600,
		User:         &userResponse{ID: "u1", Email: "jane@example.com"},
	}

	s, err := newSession(tr, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), s.ExpiresAt)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, "r1", s.RefreshToken)
}

func TestNewSession_FallsBackToClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, "sub-42", "claims@example.com", exp)

	s, err := newSession(tokenResponse{AccessToken: token}, time.Now())
	require.NoError(t, err)
	assert.True(t, exp.Equal(s.ExpiresAt))
	assert.Equal(t, "sub-42", s.User.ID)
	assert.Equal(t, "claims@example.com", s.User.Email)
}

func TestNewSession_NoToken(t *testing.T) {
	_, err := newSession(tokenResponse{}, time.Now())
	assert.Error(t, err)
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	got, err := TokenExpiry(signedToken(t, "u", "e@example.com", exp))
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	_, err = TokenExpiry("not-a-jwt")
	assert.Error(t, err)
}

func TestSession_Expired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(30 * time.Second)}

	assert.False(t, s.Expired(now, 0))
	assert.True(t, s.Expired(now, time.Minute))
	assert.False(t, (&Session{}).Expired(now, time.Hour), "zero expiry never expires")
}
