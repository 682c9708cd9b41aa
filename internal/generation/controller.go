// Package generation requests tailored resume bullets for the selected
// experiences and owns the resulting bullet groups.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/jonathan/resume-tailor/internal/apiclient"
	"github.com/jonathan/resume-tailor/internal/observe"
	"github.com/jonathan/resume-tailor/internal/types"
)

// CopyAllKey is the acknowledgment key of a copy-all.
const CopyAllKey = "all"

const generateFailedMessage = "Failed to generate bullets"

var (
	// ErrEmptySelection is returned when no experience is selected.
	ErrEmptySelection = errors.New("no experiences selected")
	// ErrEmptyQuery is returned when the job description is blank.
	ErrEmptyQuery = errors.New("job description is empty")
	// ErrGenerationInFlight is returned while a generation is pending.
	ErrGenerationInFlight = errors.New("a generation is already in progress")
	// ErrSuperseded is returned to a generation whose result was discarded.
	ErrSuperseded = errors.New("generation superseded")
)

// Error represents a failed generation.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Generator produces bullets for a job description and experience ids.
type Generator interface {
	Generate(ctx context.Context, req types.GenerateRequest) (*types.GenerateResponse, error)
}

// Copier writes text to the clipboard and acknowledges it under key.
type Copier interface {
	Copy(text, key string) error
	Current() string
}

// State is a consistent snapshot of the controller.
type State struct {
	Busy    bool
	Results []types.ProjectBullets
	Error   string
	Copied  string // acknowledgment key of the latest copy, "" when none
}

// Controller runs one generation at a time.
type Controller struct {
	generator Generator
	copier    Copier
	logger    *log.Logger

	mu      sync.Mutex
	busy    bool
	results []types.ProjectBullets
	errMsg  string
	seq     uint64
	cancel  context.CancelFunc

	hub observe.Hub[State]
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller with no results.
func NewController(generator Generator, copier Copier, opts ...Option) *Controller {
	c := &Controller{
		generator: generator,
		copier:    copier,
		logger:    log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate requests bullets for the ordered selection. Local precondition
// failures never reach the network. On failure the previous result stays.
func (c *Controller) Generate(ctx context.Context, jobDescription string, selectedIDs []string) error {
	if len(selectedIDs) == 0 {
		return ErrEmptySelection
	}
	if strings.TrimSpace(jobDescription) == "" {
		return ErrEmptyQuery
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrGenerationInFlight
	}
	c.seq++
	seq := c.seq
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.busy = true
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()

	req := types.GenerateRequest{
		JobDescription: jobDescription,
		ExperienceIDs:  append([]string(nil), selectedIDs...),
	}
	c.logger.Printf("[generation] request #%d for %d experience(s)", seq, len(req.ExperienceIDs))
	resp, err := c.generator.Generate(reqCtx, req)
	cancel()

	c.mu.Lock()
	if seq != c.seq {
		if errors.Is(err, apiclient.ErrSessionExpired) && !c.busy {
			c.errMsg = ErrorMessage(err)
			c.mu.Unlock()
			c.publish()
			c.logger.Printf("[generation] request #%d ended by session expiry", seq)
			return &Error{Message: "generation failed", Cause: err}
		}
		c.mu.Unlock()
		c.logger.Printf("[generation] dropping stale result of request #%d", seq)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		return ErrSuperseded
	}
	c.busy = false
	c.cancel = nil

	if err != nil {
		c.errMsg = ErrorMessage(err)
		c.mu.Unlock()
		c.publish()
		c.logger.Printf("[generation] request #%d failed: %v", seq, err)
		return &Error{Message: "generation failed", Cause: err}
	}

	c.results = types.CloneProjects(resp.Projects)
	if c.results == nil {
		c.results = []types.ProjectBullets{}
	}
	c.mu.Unlock()
	c.publish()

	c.logger.Printf("[generation] request #%d returned %d group(s)", seq, len(resp.Projects))
	return nil
}

// ErrorMessage maps a generation failure to the text shown to the user.
// Backend detail is shown verbatim.
func ErrorMessage(err error) string {
	return apiclient.UserMessage(err, generateFailedMessage)
}

// BulletKey is the acknowledgment key of a single bullet.
func BulletKey(group, bullet int) string {
	return fmt.Sprintf("%d-%d", group, bullet)
}

// CopyBullet copies one bullet and acknowledges it under key.
func (c *Controller) CopyBullet(text, key string) error {
	if err := c.copier.Copy(text, key); err != nil {
		return err
	}
	c.publish()
	return nil
}

// CopyAllBullets copies every group as plain text and acknowledges CopyAllKey.
func (c *Controller) CopyAllBullets(groups []types.ProjectBullets) error {
	return c.CopyBullet(FormatAll(groups), CopyAllKey)
}

// FormatAll renders groups as a project heading followed by its bullets,
// separated by blank lines.
func FormatAll(groups []types.ProjectBullets) string {
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(g.Project)
		b.WriteString("\n")
		for _, bullet := range g.Bullets {
			b.WriteString("• ")
			b.WriteString(strings.TrimSpace(strings.TrimLeft(bullet, "•-* ")))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Busy reports whether a generation is pending.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Results returns a copy of the latest bullet groups.
func (c *Controller) Results() []types.ProjectBullets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return types.CloneProjects(c.results)
}

// Abandon ignores any pending generation. Existing results stay.
func (c *Controller) Abandon() {
	c.mu.Lock()
	changed := c.abandonLocked()
	c.mu.Unlock()
	if changed {
		c.publish()
	}
}

func (c *Controller) abandonLocked() bool {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if !c.busy {
		return false
	}
	c.busy = false
	return true
}

// Reset abandons any pending generation and clears results.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.abandonLocked()
	c.results = nil
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	s := State{
		Busy:    c.busy,
		Results: types.CloneProjects(c.results),
		Error:   c.errMsg,
	}
	c.mu.Unlock()

	if c.copier != nil {
		s.Copied = c.copier.Current()
	}
	return s
}

// Subscribe registers fn for every state change.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	return c.hub.Subscribe(fn)
}

// Refresh republishes the current state, e.g. after a copy acknowledgment expired.
func (c *Controller) Refresh() {
	c.publish()
}

func (c *Controller) publish() {
	c.hub.Publish(c.State())
}
