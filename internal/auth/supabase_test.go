package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupabase_SignInWithPassword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "jane@example.com", body["email"])
		assert.Equal(t, "secret1", body["password"])

		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"expires_at":1900000000,"user":{"id":"u1","email":"jane@example.com"}}`))
	}))
	defer server.Close()

	s, err := NewSupabase(server.URL+"/", "anon-key", server.Client()).SignInWithPassword(context.Background(), "jane@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "at", s.AccessToken)
	assert.Equal(t, "rt", s.RefreshToken)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, time.Unix(1900000000, 0), s.ExpiresAt)
}

func TestSupabase_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error_description", 400, `{"error":"invalid_grant","error_description":"Invalid login credentials"}`, "Invalid login credentials"},
		{"msg", 429, `{"code":429,"msg":"For security purposes, you can only request this after 12 seconds."}`, "For security purposes, you can only request this after 12 seconds."},
		{"message", 422, `{"message":"Password should be at least 6 characters"}`, "Password should be at least 6 characters"},
		{"unparseable", 502, `<html>bad gateway</html>`, "identity provider returned 502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewSupabase(server.URL, "k", nil).SignInWithPassword(context.Background(), "a@b.co", "secret1")
			require.Error(t, err)

			var ae *Error
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.status, ae.Status)
			assert.Equal(t, tt.wantMsg, ae.Message)
			assert.Equal(t, "sign in", ae.Op)
		})
	}
}

func TestSupabase_SignUpConfirmationRequired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u2","email":"new@example.com","confirmation_sent_at":"2025-01-01T00:00:00Z"}`))
	}))
	defer server.Close()

	s, err := NewSupabase(server.URL, "k", nil).SignUp(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSupabase_SignUpWithSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":60,"user":{"id":"u2","email":"new@example.com"}}`))
	}))
	defer server.Close()

	s, err := NewSupabase(server.URL, "k", nil).SignUp(context.Background(), "new@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "at", s.AccessToken)
}

func TestSupabase_RefreshSignOutAndExchange(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.URL.Path+"?"+r.URL.Query().Get("grant_type"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		switch {
		case r.URL.Path == "/auth/v1/logout":
			assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Query().Get("grant_type") == "refresh_token":
			assert.Equal(t, "rt", body["refresh_token"])
			_, _ = w.Write([]byte(`{"access_token":"at2","refresh_token":"rt2","expires_in":60}`))
		case r.URL.Query().Get("grant_type") == "pkce":
			assert.Equal(t, "code-1", body["auth_code"])
			assert.Equal(t, "verifier-1", body["code_verifier"])
			_, _ = w.Write([]byte(`{"access_token":"at3","refresh_token":"rt3","expires_in":60}`))
		}
	}))
	defer server.Close()

	sb := NewSupabase(server.URL, "k", nil)
	ctx := context.Background()

	s, err := sb.Refresh(ctx, "rt")
	require.NoError(t, err)
	assert.Equal(t, "at2", s.AccessToken)

	require.NoError(t, sb.SignOut(ctx, "at"))

	s, err = sb.ExchangeCode(ctx, "code-1", "verifier-1")
	require.NoError(t, err)
	assert.Equal(t, "at3", s.AccessToken)

	assert.Equal(t, []string{"/auth/v1/token?refresh_token", "/auth/v1/logout?", "/auth/v1/token?pkce"}, seen)
}

func TestSupabase_AuthorizeURL(t *testing.T) {
	raw := NewSupabase("https://abc.supabase.co", "k", nil).AuthorizeURL("google", "http://127.0.0.1:5000/callback", "chal")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "http://127.0.0.1:5000/callback", u.Query().Get("redirect_to"))
	assert.Equal(t, "chal", u.Query().Get("code_challenge"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))
}

func TestSupabase_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	_, err := NewSupabase(server.URL, "k", nil).Refresh(context.Background(), "rt")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 0, ae.Status)
	assert.False(t, ae.Rejected())
	assert.NotNil(t, ae.Cause)
}
