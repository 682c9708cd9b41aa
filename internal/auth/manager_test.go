package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SignInEstablishesSession(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	provider := &fakeProvider{
		signIn: func(_ context.Context, email, password string) (*Session, error) {
			return testSession("tok-1", exp), nil
		},
	}
	store := NewMemoryStore()
	m := NewManager(provider, store)

	var published []*Session
	m.Subscribe(func(s *Session) { published = append(published, s) })

	require.NoError(t, m.SignIn(context.Background(), "jane@example.com", "secret1"))

	assert.Equal(t, "tok-1", m.AccessToken())
	user, ok := m.CurrentUser()
	assert.True(t, ok)
	assert.Equal(t, "jane@example.com", user.Email)
	require.Len(t, published, 1)
	assert.Equal(t, "tok-1", published[0].AccessToken)

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", stored.AccessToken)
}

func TestManager_SignInValidatesBeforeCallingProvider(t *testing.T) {
	provider := &fakeProvider{}
	m := NewManager(provider, nil)

	for _, tc := range []struct{ email, password string }{
		{"not-an-email", "secret1"},
		{"jane@example.com", "12345"},
		{"", ""},
	} {
		err := m.SignIn(context.Background(), tc.email, tc.password)
		var ae *Error
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, credentialsMessage, ae.UserMessage())
	}
	assert.Equal(t, int32(0), provider.signInCalls.Load())
	assert.Equal(t, "", m.AccessToken())
}

func TestManager_SignInProviderError(t *testing.T) {
	provider := &fakeProvider{
		signIn: func(context.Context, string, string) (*Session, error) {
			return nil, &Error{Op: "sign in", Status: 429, Message: "you can only request this after 8 seconds"}
		},
	}
	m := NewManager(provider, nil)

	err := m.SignIn(context.Background(), "jane@example.com", "secret1")
	var ae *Error
	require.ErrorAs(t, err, &ae)
	d, ok := ae.Cooldown()
	assert.True(t, ok)
	assert.Equal(t, 8*time.Second, d)
	assert.Equal(t, "", m.AccessToken())
}

func TestManager_SignUp(t *testing.T) {
	provider := &fakeProvider{
		signUp: func(_ context.Context, email, _ string) (*Session, error) {
			if email == "confirm@example.com" {
				return nil, nil
			}
			return testSession("tok-new", time.Time{}), nil
		},
	}
	m := NewManager(provider, nil)

	res, err := m.SignUp(context.Background(), "confirm@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, res.ConfirmationRequired)
	assert.Equal(t, "", m.AccessToken(), "confirmation pending means no session")

	res, err = m.SignUp(context.Background(), "instant@example.com", "secret1")
	require.NoError(t, err)
	assert.False(t, res.ConfirmationRequired)
	assert.Equal(t, "tok-new", m.AccessToken())
}

func TestManager_SignOutIsIdempotentAndNeverFails(t *testing.T) {
	provider := &fakeProvider{
		signIn: func(context.Context, string, string) (*Session, error) {
			return testSession("tok-1", time.Time{}), nil
		},
		signOut: func(context.Context, string) error {
			return errors.New("network down")
		},
	}
	store := NewMemoryStore()
	m := NewManager(provider, store)
	require.NoError(t, m.SignIn(context.Background(), "jane@example.com", "secret1"))

	var changes []*Session
	m.Subscribe(func(s *Session) { changes = append(changes, s) })

	m.SignOut(context.Background())
	m.SignOut(context.Background())

	assert.Equal(t, "", m.AccessToken())
	_, ok := m.CurrentUser()
	assert.False(t, ok)
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, []*Session{nil}, changes, "only the first sign-out is a change")
	assert.Equal(t, int32(1), provider.signOutCalls.Load())
}

func TestManager_RestoreValidSession(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(testSession("stored", time.Now().Add(time.Hour))))

	m := NewManager(&fakeProvider{}, store)
	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, "stored", m.AccessToken())
}

func TestManager_RestoreEmptyStore(t *testing.T) {
	m := NewManager(&fakeProvider{}, NewMemoryStore())
	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, "", m.AccessToken())
}

func TestManager_RestoreExpiredRefreshes(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(testSession("old", time.Now().Add(-time.Minute))))

	provider := &fakeProvider{
		refresh: func(_ context.Context, rt string) (*Session, error) {
			assert.Equal(t, "refresh-old", rt)
			s := testSession("new", time.Now().Add(time.Hour))
			s.User.ID = ""
			return s, nil
		},
	}
	m := NewManager(provider, store)

	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, "new", m.AccessToken())
	user, _ := m.CurrentUser()
	assert.Equal(t, "user-1", user.ID, "user carried over when the refresh response omits it")

	stored, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "new", stored.AccessToken)
}

func TestManager_RestoreRejectedRefreshSignsOut(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Save(testSession("old", time.Now().Add(-time.Minute))))

	provider := &fakeProvider{
		refresh: func(context.Context, string) (*Session, error) {
			return nil, &Error{Op: "refresh", Status: 400, Message: "Invalid Refresh Token"}
		},
	}
	m := NewManager(provider, store)

	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, "", m.AccessToken())
	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestManager_RefreshCollapsesConcurrentCallers(t *testing.T) {
	release := make(chan struct{})
	provider := &fakeProvider{
		refresh: func(context.Context, string) (*Session, error) {
			<-release
			return testSession("fresh", time.Now().Add(time.Hour)), nil
		},
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(testSession("stale", time.Now().Add(time.Hour))))
	m := NewManager(provider, store)
	require.NoError(t, m.Restore(context.Background()))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Refresh(context.Background())
		}(i)
	}

	assert.Eventually(t, func() bool { return provider.refreshCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), provider.refreshCalls.Load())
	assert.Equal(t, "fresh", m.AccessToken())
}

func TestManager_RefreshWhenSignedOut(t *testing.T) {
	m := NewManager(&fakeProvider{}, nil)
	assert.ErrorIs(t, m.Refresh(context.Background()), ErrNotSignedIn)
}

func TestManager_RefreshNetworkFailureKeepsSession(t *testing.T) {
	provider := &fakeProvider{
		refresh: func(context.Context, string) (*Session, error) {
			return nil, &Error{Op: "refresh", Message: "could not reach the identity provider", Cause: errors.New("dial tcp")}
		},
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(testSession("tok", time.Now().Add(time.Hour))))
	m := NewManager(provider, store)
	require.NoError(t, m.Restore(context.Background()))

	assert.Error(t, m.Refresh(context.Background()))
	assert.Equal(t, "tok", m.AccessToken())
}

func TestManager_RunAutoRefreshStopsOnCancel(t *testing.T) {
	m := NewManager(&fakeProvider{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.RunAutoRefresh(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("RunAutoRefresh did not stop")
	}
}

func TestManager_RunAutoRefreshRefreshesBeforeExpiry(t *testing.T) {
	provider := &fakeProvider{
		refresh: func(context.Context, string) (*Session, error) {
			return testSession("renewed", time.Now().Add(time.Hour)), nil
		},
	}
	store := NewMemoryStore()
	// Expires inside the skew, so the first wait is the minimum.
	require.NoError(t, store.Save(testSession("tok", time.Now().Add(2*time.Hour))))
	m := NewManager(provider, store, WithRefreshSkew(2*time.Hour-4*time.Second))
	require.NoError(t, m.Restore(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.RunAutoRefresh(ctx) }()

	assert.Eventually(t, func() bool { return m.AccessToken() == "renewed" }, 10*time.Second, 50*time.Millisecond)
}
