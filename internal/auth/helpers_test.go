package auth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/resume-tailor/internal/types"
	"github.com/stretchr/testify/require"
)

// signedToken returns an HS256 token with the given subject, email and expiry.
func signedToken(t *testing.T, sub, email string, exp time.Time) string {
	t.Helper()
	claims := &accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func testSession(token string, exp time.Time) *Session {
	return &Session{
		User:         types.User{ID: "user-1", Email: "jane@example.com"},
		AccessToken:  token,
		RefreshToken: "refresh-" + token,
		ExpiresAt:    exp,
	}
}

// fakeProvider implements Provider with overridable function fields.
type fakeProvider struct {
	signIn       func(ctx context.Context, email, password string) (*Session, error)
	signUp       func(ctx context.Context, email, password string) (*Session, error)
	refresh      func(ctx context.Context, refreshToken string) (*Session, error)
	signOut      func(ctx context.Context, accessToken string) error
	authorizeURL func(oauthProvider, redirectTo, codeChallenge string) string
	exchange     func(ctx context.Context, code, verifier string) (*Session, error)

	signInCalls  atomic.Int32
	refreshCalls atomic.Int32
	signOutCalls atomic.Int32
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	f.signInCalls.Add(1)
	return f.signIn(ctx, email, password)
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return f.signUp(ctx, email, password)
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	f.refreshCalls.Add(1)
	return f.refresh(ctx, refreshToken)
}

func (f *fakeProvider) SignOut(ctx context.Context, accessToken string) error {
	f.signOutCalls.Add(1)
	if f.signOut == nil {
		return nil
	}
	return f.signOut(ctx, accessToken)
}

func (f *fakeProvider) AuthorizeURL(oauthProvider, redirectTo, codeChallenge string) string {
	return f.authorizeURL(oauthProvider, redirectTo, codeChallenge)
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	return f.exchange(ctx, code, verifier)
}
