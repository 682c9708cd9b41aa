package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrNotSignedIn is returned by operations that need an existing session.
var ErrNotSignedIn = errors.New("not signed in")

var cooldownPattern = regexp.MustCompile(`(\d+)\s*second`)

// Error represents a failure reported by the identity provider or while talking to it.
type Error struct {
	Op      string // "sign in", "sign up", "refresh", ...
	Status  int    // HTTP status, 0 when no response was received
	Message string // provider message, shown to the user
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth %s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("auth %s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Cooldown extracts a rate-limit wait embedded in the provider message,
// e.g. "you can only request this after 42 seconds".
func (e *Error) Cooldown() (time.Duration, bool) {
	m := cooldownPattern.FindStringSubmatch(e.Message)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return time.Duration(n) * time.Second, true
}

// UserMessage returns the text to show for this error.
func (e *Error) UserMessage() string {
	if d, ok := e.Cooldown(); ok {
		return fmt.Sprintf("We're on a free plan with limited auth requests. Please wait %d seconds before trying again.", int(d/time.Second))
	}
	return e.Message
}

// Rejected reports whether the provider refused the request (4xx), as opposed to
// a transport or server failure.
func (e *Error) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// isRejected reports whether err is an *Error with a 4xx status.
func isRejected(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Rejected()
}
