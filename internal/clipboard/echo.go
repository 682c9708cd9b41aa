// Package clipboard copies text to the system clipboard and remembers, for a
// short while, which item was copied last.
package clipboard

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/jonathan/resume-tailor/internal/observe"
)

// DefaultAckDuration is how long a copy stays acknowledged.
const DefaultAckDuration = 2000 * time.Millisecond

// ErrClipboardUnavailable is returned when the text could not be written.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// Writer writes text to a clipboard.
type Writer interface {
	WriteAll(text string) error
}

// System writes to the operating system clipboard.
type System struct{}

// WriteAll writes text to the system clipboard.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}

// Echo tracks the acknowledgment key of the latest successful copy.
type Echo struct {
	writer Writer
	ack    time.Duration
	logger *log.Logger

	mu      sync.Mutex
	current string
	token   uint64
	timers  map[uint64]*time.Timer
	closed  bool

	hub observe.Hub[string]
}

// Option configures an Echo.
type Option func(*Echo)

// WithAckDuration sets how long a copy stays acknowledged.
func WithAckDuration(d time.Duration) Option {
	return func(e *Echo) {
		if d > 0 {
			e.ack = d
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Echo) { e.logger = l }
}

// New creates an Echo writing through w. A nil w uses the system clipboard.
func New(w Writer, opts ...Option) *Echo {
	if w == nil {
		w = System{}
	}
	e := &Echo{
		writer: w,
		ack:    DefaultAckDuration,
		logger: log.New(io.Discard, "", 0),
		timers: make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Copy writes text and marks key as acknowledged until the ack duration passes.
// A failed write leaves the current acknowledgment untouched.
func (e *Echo) Copy(text, key string) error {
	if err := e.writer.WriteAll(text); err != nil {
		e.logger.Printf("[clipboard] write failed: %v", err)
		return fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.token++
	token := e.token
	e.current = key
	e.timers[token] = time.AfterFunc(e.ack, func() { e.expire(token) })
	e.mu.Unlock()

	e.hub.Publish(key)
	return nil
}

// expire clears the acknowledgment only if no newer copy replaced it.
func (e *Echo) expire(token uint64) {
	e.mu.Lock()
	delete(e.timers, token)
	if e.closed || e.token != token {
		e.mu.Unlock()
		return
	}
	e.current = ""
	e.mu.Unlock()

	e.hub.Publish("")
}

// Current returns the acknowledged key, or "" when none is.
func (e *Echo) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Subscribe registers fn for every acknowledgment change.
func (e *Echo) Subscribe(fn func(key string)) (cancel func()) {
	return e.hub.Subscribe(fn)
}

// Close stops pending timers. Later copies still write but are not acknowledged.
func (e *Echo) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for token, t := range e.timers {
		t.Stop()
		delete(e.timers, token)
	}
}
