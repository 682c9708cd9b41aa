package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-tailor/internal/app"
	"github.com/jonathan/resume-tailor/internal/auth"
	"github.com/jonathan/resume-tailor/internal/types"
)

type stubProvider struct{}

func (stubProvider) SignInWithPassword(_ context.Context, email, password string) (*auth.Session, error) {
	if password != "secret" {
		return nil, &auth.Error{Op: "sign in", Status: http.StatusBadRequest, Message: "Invalid login credentials"}
	}
	return &auth.Session{
		User:        types.User{ID: "user-1", Email: email},
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}, nil
}

func (stubProvider) SignUp(context.Context, string, string) (*auth.Session, error) {
	return nil, nil
}

func (stubProvider) Refresh(context.Context, string) (*auth.Session, error) {
	return nil, &auth.Error{Op: "refresh", Status: http.StatusBadRequest, Message: "invalid refresh token"}
}

func (stubProvider) SignOut(context.Context, string) error { return nil }

func (stubProvider) AuthorizeURL(string, string, string) string { return "" }

func (stubProvider) ExchangeCode(context.Context, string, string) (*auth.Session, error) {
	return nil, errors.New("not used")
}

type memClipboard struct {
	mu   sync.Mutex
	text string
}

func (m *memClipboard) WriteAll(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return nil
}

func (m *memClipboard) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

// testEnv is one CLI invocation environment: a fake backend, an in-memory
// session store and a config file pointing at both.
type testEnv struct {
	t         *testing.T
	dir       string
	config    string
	store     *auth.MemoryStore
	clipboard *memClipboard
	mu        sync.Mutex
	requests  []string
	bodies    map[string][]byte
	handlers  map[string]http.HandlerFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, k := range []string{"RESUME_TAILOR_API_URL", "REACT_APP_API_URL", "RESUME_TAILOR_PROFILE_DIR", "RATE_LIMIT_ENABLED"} {
		t.Setenv(k, "")
	}

	e := &testEnv{
		t:         t,
		dir:       t.TempDir(),
		store:     auth.NewMemoryStore(),
		clipboard: &memClipboard{},
		bodies:    map[string][]byte{},
		handlers:  map[string]http.HandlerFunc{},
	}
	e.handle("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	server := httptest.NewServer(http.HandlerFunc(e.serve))
	t.Cleanup(server.Close)

	cfg, err := json.Marshal(map[string]any{
		"api_url":             server.URL,
		"profile_dir":         e.dir,
		"warmup_interval_ms":  10,
		"warmup_max_attempts": 3,
		"copy_ack_ms":         50,
		"rate_limit_enabled":  false,
	})
	require.NoError(t, err)
	e.config = e.writeFile("config.json", string(cfg))
	return e
}

func (e *testEnv) handle(pattern string, h http.HandlerFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[pattern] = h
}

func (e *testEnv) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.EscapedPath()
	var body bytes.Buffer
	_, _ = body.ReadFrom(r.Body)

	e.mu.Lock()
	h, ok := e.handlers[key]
	if key != "GET /health" {
		e.requests = append(e.requests, key)
		e.bodies[key] = body.Bytes()
	}
	e.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not found"}`))
		return
	}
	r.Body = http.NoBody
	h(w, r)
}

// Requests lists every non-health request the backend saw, as "METHOD path".
func (e *testEnv) Requests() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.requests...)
}

// Body returns the last request body sent to key.
func (e *testEnv) Body(key string) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bodies[key]
}

func (e *testEnv) signIn() {
	e.t.Helper()
	require.NoError(e.t, e.store.Save(&auth.Session{
		User:        types.User{ID: "user-1", Email: "jane@example.com"},
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))
}

func (e *testEnv) writeFile(name, content string) string {
	e.t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes the root command in-process and returns stdout and the error.
func (e *testEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	resetFlags(rootCmd)

	appOptions = []app.Option{
		app.WithProvider(stubProvider{}),
		app.WithStore(e.store),
		app.WithClipboard(e.clipboard),
		app.WithRenderer(nil),
	}
	e.t.Cleanup(func() { appOptions = nil })

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append(args, "--config", e.config))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// resetFlags restores every flag to its default so package-level flag
// variables do not leak between runs.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const searchResults = `{"results": [
	{"id": "e1", "title": "Payments API", "type": "work", "date_range": "2021 - 2023", "similarity": 0.91, "skills": ["Python", "Postgres"]},
	{"id": "e2", "title": "Search Service", "type": "project", "similarity": 0.55, "skills": ["Go"]}
]}`

const generateResults = `{"projects": [
	{"project": "Payments API", "bullets": ["Built a payments API", "Cut latency 40%"]},
	{"project": "Search Service", "bullets": ["Shipped search"]}
]}`
