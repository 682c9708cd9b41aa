package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when the job description is blank.
	ErrEmptyQuery = errors.New("job description is empty")
	// ErrSearchInFlight is returned when a search is already running.
	ErrSearchInFlight = errors.New("a search is already in progress")
	// ErrSuperseded is returned to a search whose result was discarded
	// because the view was abandoned or reset while it ran.
	ErrSuperseded = errors.New("search superseded")
)

// Error represents a failed search.
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
