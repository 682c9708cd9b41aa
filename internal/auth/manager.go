package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/jonathan/resume-tailor/internal/observe"
	"github.com/jonathan/resume-tailor/internal/types"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRefreshSkew is how long before expiry a session is refreshed.
	DefaultRefreshSkew = 60 * time.Second

	idleRefreshCheck = 30 * time.Second
	minRefreshWait   = 5 * time.Second
	signOutTimeout   = 10 * time.Second
)

// SignUpResult reports the outcome of a successful sign-up.
type SignUpResult struct {
	// ConfirmationRequired is true when the account must be confirmed by
	// email before it can sign in. No session was established.
	ConfirmationRequired bool
}

// Manager owns the current session.
type Manager struct {
	provider Provider
	store    Store
	logger   *log.Logger
	now      func() time.Time
	skew     time.Duration

	mu      sync.RWMutex
	session *Session

	hub     observe.Hub[*Session]
	refresh singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRefreshSkew sets how long before expiry the session is refreshed.
func WithRefreshSkew(d time.Duration) Option {
	return func(m *Manager) { m.skew = d }
}

// NewManager creates a signed-out manager. A nil store keeps the session in memory only.
func NewManager(provider Provider, store Store, opts ...Option) *Manager {
	if store == nil {
		store = NewMemoryStore()
	}
	m := &Manager{
		provider: provider,
		store:    store,
		logger:   log.New(io.Discard, "", 0),
		now:      time.Now,
		skew:     DefaultRefreshSkew,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SignIn authenticates with email and password and establishes the session.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	creds := types.Credentials{Email: email, Password: password}
	if err := creds.Validate(); err != nil {
		return &Error{Op: "sign in", Message: credentialsMessage, Cause: err}
	}

	s, err := m.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	m.logger.Printf("[auth] signed in as %s", s.User.Email)
	m.setSession(s)
	return nil
}

// SignUp creates an account. When the provider returns a session it is
// established exactly as SignIn would.
func (m *Manager) SignUp(ctx context.Context, email, password string) (SignUpResult, error) {
	creds := types.Credentials{Email: email, Password: password}
	if err := creds.Validate(); err != nil {
		return SignUpResult{}, &Error{Op: "sign up", Message: credentialsMessage, Cause: err}
	}

	s, err := m.provider.SignUp(ctx, email, password)
	if err != nil {
		return SignUpResult{}, err
	}
	if s == nil {
		m.logger.Printf("[auth] account %s created, confirmation required", email)
		return SignUpResult{ConfirmationRequired: true}, nil
	}
	m.logger.Printf("[auth] account %s created and signed in", email)
	m.setSession(s)
	return SignUpResult{}, nil
}

const credentialsMessage = "Enter a valid email and a password of at least 6 characters."

// SignOut clears the session locally, then revokes it server-side on a best
// effort basis. It never fails and signing out twice is harmless.
func (m *Manager) SignOut(ctx context.Context) {
	m.mu.Lock()
	old := m.session
	m.session = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Printf("[auth] failed to clear stored session: %v", err)
	}
	if old == nil {
		return
	}
	m.hub.Publish(nil)
	m.logger.Printf("[auth] signed out %s", old.User.Email)

	revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signOutTimeout)
	defer cancel()
	if err := m.provider.SignOut(revokeCtx, old.AccessToken); err != nil {
		m.logger.Printf("[auth] server-side sign out failed: %v", err)
	}
}

// AccessToken returns the current bearer token, or "" when signed out.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// CurrentUser returns the signed-in user.
func (m *Manager) CurrentUser() (types.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return types.User{}, false
	}
	return m.session.User, true
}

// Session returns a copy of the current session, or nil.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.clone()
}

// Subscribe registers fn for every session change. fn receives nil on sign-out.
func (m *Manager) Subscribe(fn func(*Session)) (cancel func()) {
	return m.hub.Subscribe(fn)
}

// Restore loads the persisted session, refreshing it when it has expired.
// A missing or rejected session leaves the manager signed out without error.
func (m *Manager) Restore(ctx context.Context) error {
	s, err := m.store.Load()
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	if !s.Expired(m.now(), m.skew) {
		m.logger.Printf("[auth] restored session for %s", s.User.Email)
		m.setSession(s)
		return nil
	}

	if s.RefreshToken == "" {
		m.logger.Printf("[auth] stored session expired")
		m.clearLocal()
		return nil
	}

	m.mu.Lock()
	m.session = s
	m.mu.Unlock()

	if err := m.Refresh(ctx); err != nil {
		if isRejected(err) {
			return nil
		}
		return err
	}
	return nil
}

// Refresh trades the refresh token for a new session. Concurrent callers share
// one provider call. A rejected refresh signs the user out.
func (m *Manager) Refresh(ctx context.Context) error {
	_, err, _ := m.refresh.Do("refresh", func() (any, error) {
		current := m.Session()
		if current == nil {
			return nil, ErrNotSignedIn
		}
		if current.RefreshToken == "" {
			return nil, &Error{Op: "refresh", Message: "session has no refresh token"}
		}

		s, err := m.provider.Refresh(ctx, current.RefreshToken)
		if err != nil {
			if isRejected(err) {
				m.logger.Printf("[auth] refresh rejected, signing out: %v", err)
				m.clearLocal()
			}
			return nil, err
		}
		if s.User.ID == "" {
			s.User = current.User
		}

		// A sign-out that happened while refreshing wins.
		m.mu.Lock()
		if m.session == nil || m.session.RefreshToken != current.RefreshToken {
			m.mu.Unlock()
			return nil, ErrNotSignedIn
		}
		m.mu.Unlock()

		m.logger.Printf("[auth] session refreshed, expires %s", s.ExpiresAt.Format(time.RFC3339))
		m.setSession(s)
		return nil, nil
	})
	return err
}

// RunAutoRefresh refreshes the session shortly before it expires until ctx is done.
func (m *Manager) RunAutoRefresh(ctx context.Context) error {
	for {
		timer := time.NewTimer(m.untilRefresh())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s := m.Session()
		if s == nil || !s.Expired(m.now(), m.skew) {
			continue
		}
		if err := m.Refresh(ctx); err != nil && !errors.Is(err, ErrNotSignedIn) {
			m.logger.Printf("[auth] background refresh failed: %v", err)
		}
	}
}

func (m *Manager) untilRefresh() time.Duration {
	s := m.Session()
	if s == nil || s.ExpiresAt.IsZero() {
		return idleRefreshCheck
	}
	wait := s.ExpiresAt.Add(-m.skew).Sub(m.now())
	if wait < minRefreshWait {
		return minRefreshWait
	}
	return wait
}

func (m *Manager) setSession(s *Session) {
	m.mu.Lock()
	m.session = s.clone()
	m.mu.Unlock()

	if err := m.store.Save(s); err != nil {
		m.logger.Printf("[auth] failed to persist session: %v", err)
	}
	m.hub.Publish(s.clone())
}

// clearLocal drops the session without contacting the provider.
func (m *Manager) clearLocal() {
	m.mu.Lock()
	had := m.session != nil
	m.session = nil
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Printf("[auth] failed to clear stored session: %v", err)
	}
	if had {
		m.hub.Publish(nil)
	}
}
