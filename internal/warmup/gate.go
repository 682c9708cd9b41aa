// Package warmup holds the client back until the backend answers its liveness probe.
package warmup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/jonathan/resume-tailor/internal/observe"
)

// DefaultInterval is the pause between liveness probes after a failure.
const DefaultInterval = 3000 * time.Millisecond

const defaultProbeTimeout = 10 * time.Second

// ErrWarmupExhausted is returned by Wait when the attempt limit is reached.
var ErrWarmupExhausted = errors.New("backend did not become ready")

// Prober checks backend liveness. A nil error means ready.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// State is a snapshot of the gate.
type State struct {
	Ready    bool  // flips to true once and stays there
	Polling  bool  // a retry ticker is running
	Attempts int   // probes issued so far
	Failed   error // set when the attempt limit was hit
}

// Gate runs the liveness probe until it succeeds.
type Gate struct {
	prober       Prober
	interval     time.Duration
	maxAttempts  int
	probeTimeout time.Duration
	logger       *log.Logger

	mu      sync.Mutex
	state   State
	started bool
	done    chan struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	hub observe.Hub[State]
}

// Option configures a Gate.
type Option func(*Gate)

// WithInterval sets the pause between probes.
func WithInterval(d time.Duration) Option {
	return func(g *Gate) {
		if d > 0 {
			g.interval = d
		}
	}
}

// WithMaxAttempts bounds the number of probes; 0 keeps polling forever.
func WithMaxAttempts(n int) Option {
	return func(g *Gate) { g.maxAttempts = n }
}

// WithProbeTimeout bounds each individual probe.
func WithProbeTimeout(d time.Duration) Option {
	return func(g *Gate) { g.probeTimeout = d }
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Gate) { g.logger = l }
}

// NewGate creates a gate that has not probed yet.
func NewGate(prober Prober, opts ...Option) *Gate {
	g := &Gate{
		prober:       prober,
		interval:     DefaultInterval,
		probeTimeout: defaultProbeTimeout,
		logger:       log.New(io.Discard, "", 0),
		done:         make(chan struct{}),
		cancel:       func() {},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Start issues the first probe in the background and keeps polling until the
// backend is ready. Calling Start again has no effect.
func (g *Gate) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.wg.Add(1)
	g.mu.Unlock()

	go func() {
		defer g.wg.Done()
		g.run(runCtx)
	}()
}

func (g *Gate) run(ctx context.Context) {
	if g.attempt(ctx) || ctx.Err() != nil || g.exhausted() {
		return
	}

	g.update(func(s *State) { s.Polling = true })
	g.logger.Printf("[warmup] backend not ready, polling every %s", g.interval)

	ticker := time.NewTicker(g.interval)
	defer func() {
		ticker.Stop()
		g.update(func(s *State) { s.Polling = false })
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if g.attempt(ctx) || g.exhausted() {
			return
		}
	}
}

// exhausted moves the gate to its failed state once the attempt limit is hit.
func (g *Gate) exhausted() bool {
	if g.maxAttempts <= 0 || g.State().Attempts < g.maxAttempts {
		return false
	}
	err := fmt.Errorf("%w after %d attempts", ErrWarmupExhausted, g.maxAttempts)
	g.logger.Printf("[warmup] giving up: %v", err)
	g.update(func(s *State) {
		s.Failed = err
		s.Polling = false
	})
	close(g.done)
	return true
}

// attempt runs one probe and reports whether the gate is now ready.
func (g *Gate) attempt(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, g.probeTimeout)
	err := g.prober.Probe(probeCtx)
	cancel()

	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		g.update(func(s *State) { s.Attempts++ })
		g.logger.Printf("[warmup] probe %d failed: %v", g.State().Attempts, err)
		return false
	}

	g.update(func(s *State) {
		s.Attempts++
		s.Ready = true
		s.Polling = false
	})
	g.logger.Printf("[warmup] backend ready after %d probe(s)", g.State().Attempts)
	close(g.done)
	return true
}

func (g *Gate) update(fn func(s *State)) {
	g.mu.Lock()
	before := g.state
	fn(&g.state)
	after := g.state
	g.mu.Unlock()

	if before != after {
		g.hub.Publish(after)
	}
}

// Wait blocks until the backend is ready, the attempt limit is hit, or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
	}
	return g.State().Failed
}

// Ready reports whether the backend has answered.
func (g *Gate) Ready() bool {
	return g.State().Ready
}

// Polling reports whether a retry ticker is running.
func (g *Gate) Polling() bool {
	return g.State().Polling
}

// State returns the current snapshot.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe registers fn for every state change.
func (g *Gate) Subscribe(fn func(State)) (cancel func()) {
	return g.hub.Subscribe(fn)
}

// Stop cancels polling and waits for the background goroutine to exit.
func (g *Gate) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()

	cancel()
	g.wg.Wait()
}
