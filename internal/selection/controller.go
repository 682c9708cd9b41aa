// Package selection runs the job-description search and tracks which matched
// experiences are selected for generation.
package selection

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

// DefaultLimit is the number of matches requested per search.
const DefaultLimit = 3

const searchFailedMessage = "Failed to search experiences"

// Phase is the controller's position in idle → searching → results.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseResults
)

func (p Phase) String() string {
	switch p {
	case PhaseSearching:
		return "searching"
	case PhaseResults:
		return "results"
	default:
		return "idle"
	}
}

// Searcher runs a ranked search for a job description.
type Searcher interface {
	Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error)
}

// State is a consistent snapshot of the controller.
type State struct {
	Phase       Phase
	Query       string
	Candidates  []types.MatchCandidate
	Selected    []string // candidate order
	Notice      string   // advisory message from the backend
	Error       string   // user-visible failure of the last search
	CanGenerate bool
}

// IsSelected reports whether id is in the snapshot's selection.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}

// Controller owns the search lifecycle and the selection set.
type Controller struct {
	searcher Searcher
	limit    int
	logger   *log.Logger

	mu         sync.Mutex
	phase      Phase
	query      string
	candidates []types.MatchCandidate
	selected   Set
	notice     string
	errMsg     string
	seq        uint64
	cancel     context.CancelFunc
	busy       func() bool

	hub observe.Hub[State]
}

// Option configures a Controller.
type Option func(*Controller)

// WithLimit sets how many matches a search requests.
func WithLimit(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates an idle controller.
func NewController(searcher Searcher, opts ...Option) *Controller {
	c := &Controller{
		searcher: searcher,
		limit:    DefaultLimit,
		logger:   log.New(io.Discard, "", 0),
		selected: Set{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrackGeneration plugs in the generation busy signal used by CanGenerate.
func (c *Controller) TrackGeneration(busy func() bool) {
	c.mu.Lock()
	c.busy = busy
	c.mu.Unlock()
}

// SetQuery replaces the job description text without searching.
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	if c.query == text {
		c.mu.Unlock()
		return
	}
	c.query = text
	c.mu.Unlock()
	c.publish()
}

// Query returns the current job description text.
func (c *Controller) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Search ranks the user's experiences against text and selects every match.
// Blank text and overlapping searches are rejected without a request.
func (c *Controller) Search(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyQuery
	}

	c.mu.Lock()
	if c.phase == PhaseSearching {
		c.mu.Unlock()
		return ErrSearchInFlight
	}
	c.seq++
	seq := c.seq
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.phase = PhaseSearching
	c.query = text
	c.candidates = nil
	c.selected = Set{}
	c.notice = ""
	c.errMsg = ""
	limit := c.limit
	c.mu.Unlock()
	c.publish()

	c.logger.Printf("[selection] search #%d (%d chars, limit %d)", seq, len(text), limit)
	resp, err := c.searcher.Search(reqCtx, types.SearchRequest{Query: text, Limit: limit})
	cancel()

	c.mu.Lock()
	if seq != c.seq {
		// A 401 signs out, which resets the controller mid-request. The
		// expiry still has to reach the view.
		if errors.Is(err, apiclient.ErrSessionExpired) && c.phase != PhaseSearching {
			c.errMsg = apiclient.UserMessage(err, searchFailedMessage)
			c.mu.Unlock()
			c.publish()
			c.logger.Printf("[selection] search #%d ended by session expiry", seq)
			return &Error{Message: "search failed", Cause: err}
		}
		c.mu.Unlock()
		c.logger.Printf("[selection] dropping stale result of search #%d", seq)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSuperseded, err)
		}
		return ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.phase = PhaseIdle
		c.errMsg = apiclient.UserMessage(err, searchFailedMessage)
		c.mu.Unlock()
		c.publish()
		c.logger.Printf("[selection] search #%d failed: %v", seq, err)
		return &Error{Message: "search failed", Cause: err}
	}

	c.candidates = append([]types.MatchCandidate(nil), resp.Results...)
	c.selected = idsOf(c.candidates)
	c.notice = resp.Message
	c.phase = PhaseResults
	c.mu.Unlock()
	c.publish()

	c.logger.Printf("[selection] search #%d returned %d match(es)", seq, len(resp.Results))
	return nil
}

// Toggle flips id in the selection. Unknown ids are ignored.
func (c *Controller) Toggle(id string) {
	c.mu.Lock()
	if !c.hasCandidate(id) {
		c.mu.Unlock()
		return
	}
	if c.selected.Has(id) {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
	c.mu.Unlock()
	c.publish()
}

// SelectAll selects every current candidate.
func (c *Controller) SelectAll() {
	c.replaceSelection(func() Set { return idsOf(c.candidates) })
}

// SelectNone clears the selection.
func (c *Controller) SelectNone() {
	c.replaceSelection(func() Set { return Set{} })
}

func (c *Controller) replaceSelection(next func() Set) {
	c.mu.Lock()
	s := next()
	if s.equal(c.selected) {
		c.mu.Unlock()
		return
	}
	c.selected = s
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) hasCandidate(id string) bool {
	for _, m := range c.candidates {
		if m.ID == id {
			return true
		}
	}
	return false
}

// SelectedIDs returns the selection in candidate order.
func (c *Controller) SelectedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected.Ordered(c.candidates)
}

// Candidates returns the current matches.
func (c *Controller) Candidates() []types.MatchCandidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.MatchCandidate(nil), c.candidates...)
}

// CanGenerate reports whether a generation may start now.
func (c *Controller) CanGenerate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.canGenerateLocked()
}

func (c *Controller) canGenerateLocked() bool {
	if len(c.selected) == 0 || c.phase == PhaseSearching {
		return false
	}
	return c.busy == nil || !c.busy()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ErrorMessage returns the user-visible failure of the last search.
func (c *Controller) ErrorMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Abandon ignores any in-flight search and returns to idle. Loaded matches stay.
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
	if c.phase != PhaseSearching {
		return false
	}
	c.phase = PhaseIdle
	return true
}

// Reset abandons any in-flight search and clears everything.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.abandonLocked()
	c.phase = PhaseIdle
	c.query = ""
	c.candidates = nil
	c.selected = Set{}
	c.notice = ""
	c.errMsg = ""
	c.mu.Unlock()
	c.publish()
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Phase:       c.phase,
		Query:       c.query,
		Candidates:  append([]types.MatchCandidate(nil), c.candidates...),
		Selected:    c.selected.Ordered(c.candidates),
		Notice:      c.notice,
		Error:       c.errMsg,
		CanGenerate: c.canGenerateLocked(),
	}
}

// Subscribe registers fn for every state change.
func (c *Controller) Subscribe(fn func(State)) (cancel func()) {
	return c.hub.Subscribe(fn)
}

// Refresh republishes the current state, e.g. after the generation busy signal changed.
func (c *Controller) Refresh() {
	c.publish()
}

func (c *Controller) publish() {
	c.mu.Lock()
	s := c.stateLocked()
	c.mu.Unlock()
	c.hub.Publish(s)
}
