// Package auth manages the signed-in session against the identity provider.
//
// A Manager owns the current Session, persists it through a Store, keeps it
// fresh with the refresh token and publishes every change to subscribers.
// Nothing outside this package mutates the session.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/resume-tailor/internal/types"
)

// Session is an authenticated identity plus its bearer credentials.
type Session struct {
	User         types.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

// Expired reports whether the access token expires within skew of now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(s.ExpiresAt)
}

func (s *Session) clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// accessClaims are the claims read from a provider access token.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// parseAccessToken reads the claims of token without verifying its signature.
// The client never holds the signing key; the backend verifies tokens.
func parseAccessToken(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse access token: %w", err)
	}
	return claims, nil
}

// TokenExpiry returns the exp claim of an access token.
func TokenExpiry(token string) (time.Time, error) {
	claims, err := parseAccessToken(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("access token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}

// tokenResponse is the session payload returned by the provider token endpoints.
type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// newSession builds a Session from a token response, filling gaps from the
// access token claims.
func newSession(tr tokenResponse, now time.Time) (*Session, error) {
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("provider returned no access token")
	}

	s := &Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
	}
	if tr.User != nil {
		s.User = types.User{ID: tr.User.ID, Email: tr.User.Email}
	}

	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0)
	case tr.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	if s.ExpiresAt.IsZero() || s.User.ID == "" || s.User.Email == "" {
		claims, err := parseAccessToken(tr.AccessToken)
		if err == nil {
			if s.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
				s.ExpiresAt = claims.ExpiresAt.Time
			}
			if s.User.ID == "" {
				s.User.ID = claims.Subject
			}
			if s.User.Email == "" {
				s.User.Email = claims.Email
			}
		}
	}

	return s, nil
}
