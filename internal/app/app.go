// Package app wires the session, backend client, warmup gate and controllers
// into one object the CLI drives.
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-tailor/internal/apiclient"
	"github.com/jonathan/resume-tailor/internal/auth"
	"github.com/jonathan/resume-tailor/internal/clipboard"
	"github.com/jonathan/resume-tailor/internal/config"
	"github.com/jonathan/resume-tailor/internal/experience"
	"github.com/jonathan/resume-tailor/internal/fetch"
	"github.com/jonathan/resume-tailor/internal/generation"
	"github.com/jonathan/resume-tailor/internal/ingestion"
	"github.com/jonathan/resume-tailor/internal/selection"
	"github.com/jonathan/resume-tailor/internal/types"
	"github.com/jonathan/resume-tailor/internal/warmup"
)

// App is the composed client.
type App struct {
	Config      config.Config
	Session     *auth.Manager
	Client      *apiclient.Client
	Gate        *warmup.Gate
	Clipboard   *clipboard.Echo
	Selection   *selection.Controller
	Generation  *generation.Controller
	Experiences *experience.Manager
	Loader      *ingestion.Loader

	logger *log.Logger

	mu          sync.Mutex
	started     bool
	stopBG      context.CancelFunc
	bg          sync.WaitGroup
	unsubscribe []func()
}

type options struct {
	logger     *log.Logger
	httpClient *http.Client
	provider   auth.Provider
	store      auth.Store
	clipboard  clipboard.Writer
	renderer   fetch.Renderer
}

// Option customizes New.
type Option func(*options)

// WithLogger sets the logger passed to every component.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sets the HTTP client used for the backend and identity provider.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithProvider replaces the Supabase identity provider.
func WithProvider(p auth.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithStore replaces the file-backed session store.
func WithStore(s auth.Store) Option {
	return func(o *options) { o.store = s }
}

// WithClipboard replaces the system clipboard.
func WithClipboard(w clipboard.Writer) Option {
	return func(o *options) { o.clipboard = w }
}

// WithRenderer enables headless browser rendering for job posting URLs.
func WithRenderer(r fetch.Renderer) Option {
	return func(o *options) { o.renderer = r }
}

// New builds the client from configuration. Nothing touches the network
// until Start or a command runs.
func New(cfg config.Config, opts ...Option) *App {
	o := &options{
		logger:    log.New(io.Discard, "", 0),
		clipboard: clipboard.System{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.RequestTimeout()}
	}
	if o.provider == nil {
		o.provider = identityProvider(cfg, o.httpClient)
	}
	if o.store == nil {
		o.store = auth.NewFileStore(cfg.SessionFile())
	}

	a := &App{Config: cfg, logger: o.logger}

	a.Session = auth.NewManager(o.provider, o.store, auth.WithLogger(o.logger))
	a.Client = apiclient.New(cfg.TrimmedAPIURL(), a.Session,
		apiclient.WithHTTPClient(o.httpClient),
		apiclient.WithLimiter(apiclient.NewLimiter(cfg.RateLimited(), nil)),
		apiclient.WithLogger(o.logger),
	)

	gateOpts := []warmup.Option{
		warmup.WithInterval(cfg.WarmupInterval()),
		warmup.WithLogger(o.logger),
	}
	if cfg.WarmupMaxAttempts > 0 {
		gateOpts = append(gateOpts, warmup.WithMaxAttempts(cfg.WarmupMaxAttempts))
	}
	a.Gate = warmup.NewGate(warmup.ProberFunc(a.Client.Health), gateOpts...)

	a.Clipboard = clipboard.New(o.clipboard, clipboard.WithAckDuration(cfg.CopyAck()), clipboard.WithLogger(o.logger))
	a.Generation = generation.NewController(a.Client, a.Clipboard, generation.WithLogger(o.logger))
	a.Selection = selection.NewController(a.Client, selection.WithLimit(cfg.SearchLimit), selection.WithLogger(o.logger))
	a.Selection.TrackGeneration(a.Generation.Busy)

	a.Experiences = experience.NewManager(a.Client, experience.WithLogger(o.logger))
	a.Loader = ingestion.NewLoader(fetch.New(
		fetch.WithHTTPClient(o.httpClient),
		fetch.WithRenderer(o.renderer),
		fetch.WithLogger(o.logger),
	))

	a.wire()
	return a
}

// wire connects the state holders: sign-out cancels and clears both
// controllers, generation progress re-evaluates CanGenerate, and an expiring
// copy acknowledgment republishes generation state.
func (a *App) wire() {
	a.unsubscribe = append(a.unsubscribe,
		a.Session.Subscribe(func(s *auth.Session) {
			if s != nil {
				return
			}
			a.logger.Printf("[app] signed out, discarding in-flight work")
			a.Selection.Reset()
			a.Generation.Reset()
		}),
		a.Generation.Subscribe(func(generation.State) {
			a.Selection.Refresh()
		}),
		a.Clipboard.Subscribe(func(string) {
			a.Generation.Refresh()
		}),
	)
}

// Start begins warmup polling and restores the saved session concurrently,
// returning once both are done. Token auto-refresh keeps running until Close.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = true
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	a.stopBG = cancel
	a.mu.Unlock()

	a.Gate.Start(bgCtx)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.Gate.Wait(gCtx); err != nil {
			return fmt.Errorf("backend warmup failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := a.Session.Restore(gCtx); err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.bg.Add(1)
	go func() {
		defer a.bg.Done()
		_ = a.Session.RunAutoRefresh(bgCtx)
	}()
	return nil
}

// GenerateSelected generates bullets for the current query and selection.
func (a *App) GenerateSelected(ctx context.Context) error {
	return a.Generation.Generate(ctx, a.Selection.Query(), a.Selection.SelectedIDs())
}

// RequireUser returns the signed-in user or an error telling the user to sign in.
func (a *App) RequireUser() (types.User, error) {
	user, ok := a.Session.CurrentUser()
	if !ok {
		return types.User{}, apiclient.ErrNotAuthenticated
	}
	return user, nil
}

// Close stops background work and timers. It is safe to call more than once.
func (a *App) Close() {
	a.mu.Lock()
	stop := a.stopBG
	a.stopBG = nil
	unsub := a.unsubscribe
	a.unsubscribe = nil
	a.mu.Unlock()

	if stop != nil {
		stop()
	}
	a.Gate.Stop()
	a.bg.Wait()
	a.Selection.Abandon()
	a.Generation.Abandon()
	a.Clipboard.Close()
	for _, fn := range unsub {
		fn()
	}
}

func identityProvider(cfg config.Config, client *http.Client) auth.Provider {
	ic, err := cfg.Identity()
	if err != nil {
		return unconfigured{err: &auth.Error{Op: "configure", Message: err.Error()}}
	}
	return auth.NewSupabase(ic.URL, ic.AnonKey, client)
}

// unconfigured stands in for the identity provider when its settings are
// missing, so commands that never sign in still work.
type unconfigured struct{ err error }

func (u unconfigured) SignInWithPassword(context.Context, string, string) (*auth.Session, error) {
	return nil, u.err
}

func (u unconfigured) SignUp(context.Context, string, string) (*auth.Session, error) {
	return nil, u.err
}

func (u unconfigured) Refresh(context.Context, string) (*auth.Session, error) {
	return nil, u.err
}

func (u unconfigured) SignOut(context.Context, string) error { return nil }

func (u unconfigured) AuthorizeURL(string, string, string) string { return "" }

func (u unconfigured) ExchangeCode(context.Context, string, string) (*auth.Session, error) {
	return nil, u.err
}
