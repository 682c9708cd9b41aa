package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const callbackPage = `<!doctype html><html><body><p>%s You can close this window and return to the terminal.</p></body></html>`

type callbackResult struct {
	code string
	err  error
}

// SignInWithGoogle runs the OAuth PKCE flow through a loopback listener.
// open is handed the authorize URL, typically to launch a browser. The call
// returns when the provider redirects back, ctx is done, or open fails.
func (m *Manager) SignInWithGoogle(ctx context.Context, open func(url string) error) error {
	verifier := oauth2.GenerateVerifier()
	challenge := oauth2.S256ChallengeFromVerifier(verifier)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return &Error{Op: "google sign in", Message: "could not start the local callback listener", Cause: err}
	}
	redirectTo := fmt.Sprintf("http://%s/callback", ln.Addr().String())

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "" || q.Get("error_description") != "":
			msg := q.Get("error_description")
			if msg == "" {
				msg = q.Get("error")
			}
			res.err = &Error{Op: "google sign in", Status: http.StatusBadRequest, Message: msg}
			_, _ = fmt.Fprintf(w, callbackPage, "Sign-in failed.")
		case q.Get("code") != "":
			res.code = q.Get("code")
			_, _ = fmt.Fprintf(w, callbackPage, "Signed in.")
		default:
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		select {
		case results <- res:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Printf("[auth] callback listener stopped: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := m.provider.AuthorizeURL("google", redirectTo, challenge)
	m.logger.Printf("[auth] waiting for google callback on %s", redirectTo)
	if err := open(authURL); err != nil {
		return &Error{Op: "google sign in", Message: "could not open the sign-in page", Cause: err}
	}

	var res callbackResult
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return res.err
	}

	s, err := m.provider.ExchangeCode(ctx, res.code, verifier)
	if err != nil {
		return err
	}
	m.logger.Printf("[auth] signed in with google as %s", s.User.Email)
	m.setSession(s)
	return nil
}
