package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Supabase implements Provider against the GoTrue REST API.
type Supabase struct {
	baseURL string
	anonKey string
	client  *http.Client
	now     func() time.Time
}

// NewSupabase creates a provider for the project at baseURL.
// A nil client uses a client with a 30 second timeout.
func NewSupabase(baseURL, anonKey string, client *http.Client) *Supabase {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Supabase{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		client:  client,
		now:     time.Now,
	}
}

// SignInWithPassword calls POST /auth/v1/token?grant_type=password.
func (s *Supabase) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var tr tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.do(ctx, "sign in", http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}}, body, "", &tr); err != nil {
		return nil, err
	}
	return s.session("sign in", tr)
}

// SignUp calls POST /auth/v1/signup. When email confirmation is on, the
// provider answers with the bare user and no tokens.
func (s *Supabase) SignUp(ctx context.Context, email, password string) (*Session, error) {
	var resp struct {
		tokenResponse
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := s.do(ctx, "sign up", http.MethodPost, "/auth/v1/signup", nil, body, "", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, nil
	}
	return s.session("sign up", resp.tokenResponse)
}

// Refresh calls POST /auth/v1/token?grant_type=refresh_token.
func (s *Supabase) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var tr tokenResponse
	body := map[string]string{"refresh_token": refreshToken}
	if err := s.do(ctx, "refresh", http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"refresh_token"}}, body, "", &tr); err != nil {
		return nil, err
	}
	return s.session("refresh", tr)
}

// SignOut calls POST /auth/v1/logout with the access token.
func (s *Supabase) SignOut(ctx context.Context, accessToken string) error {
	return s.do(ctx, "sign out", http.MethodPost, "/auth/v1/logout", nil, nil, accessToken, nil)
}

// AuthorizeURL builds GET /auth/v1/authorize for a PKCE flow.
func (s *Supabase) AuthorizeURL(oauthProvider, redirectTo, codeChallenge string) string {
	q := url.Values{
		"provider":              {oauthProvider},
		"redirect_to":           {redirectTo},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"s256"},
	}
	return s.baseURL + "/auth/v1/authorize?" + q.Encode()
}

// ExchangeCode calls POST /auth/v1/token?grant_type=pkce.
func (s *Supabase) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Session, error) {
	var tr tokenResponse
	body := map[string]string{"auth_code": code, "code_verifier": codeVerifier}
	if err := s.do(ctx, "google sign in", http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"pkce"}}, body, "", &tr); err != nil {
		return nil, err
	}
	return s.session("google sign in", tr)
}

func (s *Supabase) session(op string, tr tokenResponse) (*Session, error) {
	sess, err := newSession(tr, s.now())
	if err != nil {
		return nil, &Error{Op: op, Message: "unexpected provider response", Cause: err}
	}
	return sess, nil
}

func (s *Supabase) do(ctx context.Context, op, method, path string, query url.Values, body any, bearer string, out any) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Message: "failed to encode request", Cause: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return &Error{Op: op, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return &Error{Op: op, Message: "could not reach the identity provider", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: "failed to read provider response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Op: op, Status: resp.StatusCode, Message: providerMessage(data, resp.StatusCode)}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Message: "unexpected provider response", Cause: err}
	}
	return nil
}

// providerMessage picks the human-readable message out of a GoTrue error body.
// GoTrue has used several shapes over time.
func providerMessage(data []byte, status int) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("identity provider returned %d %s", status, http.StatusText(status))
}
