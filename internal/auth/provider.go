package auth

import "context"

// Provider is the identity provider capability the Manager consumes.
type Provider interface {
	// SignInWithPassword authenticates with email and password.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignUp creates an account. A nil session with a nil error means the
	// account exists but must be confirmed by email before signing in.
	SignUp(ctx context.Context, email, password string) (*Session, error)
	// Refresh trades a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	// SignOut revokes the session server-side.
	SignOut(ctx context.Context, accessToken string) error
	// AuthorizeURL returns the URL that starts an OAuth sign-in with the PKCE challenge.
	AuthorizeURL(oauthProvider, redirectTo, codeChallenge string) string
	// ExchangeCode completes an OAuth sign-in.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error)
}
