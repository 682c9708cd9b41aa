package warmup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProber fails the first failures probes, then succeeds.
type scriptedProber struct {
	failures int32
	calls    atomic.Int32
}

func (p *scriptedProber) Probe(context.Context) error {
	n := p.calls.Add(1)
	if n <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

// recorder collects published states.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) readyTransitions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	prev := false
	for _, s := range r.states {
		if s.Ready && !prev {
			n++
		}
		prev = s.Ready
	}
	return n
}

func TestGate_ReadyOnFirstProbe(t *testing.T) {
	prober := &scriptedProber{}
	g := NewGate(prober, WithInterval(10*time.Millisecond))
	defer g.Stop()

	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))

	assert.True(t, g.Ready())
	assert.False(t, g.Polling())
	assert.Equal(t, int32(1), prober.calls.Load())
}

func TestGate_FailsOnceThenSucceeds(t *testing.T) {
	prober := &scriptedProber{failures: 1}
	g := NewGate(prober, WithInterval(30*time.Millisecond))
	defer g.Stop()

	rec := &recorder{}
	g.Subscribe(rec.record)

	start := time.Now()
	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))

	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, g.Ready())
	assert.False(t, g.Polling(), "polling timer cleared once ready")
	assert.Equal(t, 1, rec.readyTransitions())
	assert.Equal(t, 2, g.State().Attempts)

	// No further probes after success.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(2), prober.calls.Load())
}

func TestGate_PollsUntilReady(t *testing.T) {
	prober := &scriptedProber{failures: 4}
	g := NewGate(prober, WithInterval(5*time.Millisecond))
	defer g.Stop()

	g.Start(context.Background())
	assert.Eventually(t, g.Polling, time.Second, time.Millisecond)
	require.NoError(t, g.Wait(context.Background()))

	assert.Equal(t, int32(5), prober.calls.Load())
	assert.True(t, g.Ready())
}

func TestGate_MaxAttempts(t *testing.T) {
	prober := &scriptedProber{failures: 100}
	g := NewGate(prober, WithInterval(5*time.Millisecond), WithMaxAttempts(3))
	defer g.Stop()

	g.Start(context.Background())
	err := g.Wait(context.Background())

	assert.ErrorIs(t, err, ErrWarmupExhausted)
	assert.False(t, g.Ready())
	assert.False(t, g.Polling())
	assert.Equal(t, int32(3), prober.calls.Load())
}

func TestGate_StopEndsPolling(t *testing.T) {
	prober := &scriptedProber{failures: 1 << 30}
	g := NewGate(prober, WithInterval(5*time.Millisecond))

	g.Start(context.Background())
	assert.Eventually(t, g.Polling, time.Second, time.Millisecond)

	g.Stop()
	calls := prober.calls.Load()
	assert.False(t, g.Polling())
	assert.False(t, g.Ready())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, prober.calls.Load(), "no probes after Stop")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, g.Wait(ctx), context.DeadlineExceeded)
}

func TestGate_StartTwice(t *testing.T) {
	prober := &scriptedProber{}
	g := NewGate(prober)
	defer g.Stop()

	g.Start(context.Background())
	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(1), prober.calls.Load())
}

func TestGate_StopBeforeStart(t *testing.T) {
	g := NewGate(&scriptedProber{})
	g.Stop()
	assert.False(t, g.Ready())
}

func TestHTTPProber(t *testing.T) {
	var healthy atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewHTTPProber(server.URL+"/", server.Client())
	assert.Error(t, p.Probe(context.Background()))

	healthy.Store(true)
	assert.NoError(t, p.Probe(context.Background()))
}

func TestGate_WithHTTPProberColdStart(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	g := NewGate(NewHTTPProber(server.URL, nil), WithInterval(20*time.Millisecond))
	defer g.Stop()

	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(2), hits.Load())
}
