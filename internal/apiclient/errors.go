package apiclient

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotAuthenticated means there was no bearer token; no request was sent.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired means the backend answered 401 and the session was torn down.
	ErrSessionExpired = errors.New("session expired")
	// ErrNetworkFailure matches every *NetworkError.
	ErrNetworkFailure = errors.New("network failure")
)

// NetworkError represents a transport-level failure where no response was received.
type NetworkError struct {
	Method string
	URL    string
	Cause  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Cause)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrNetworkFailure) true for any NetworkError.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetworkFailure
}

// BackendError represents a non-2xx response. Detail is the backend's message.
type BackendError struct {
	Status int
	Detail string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
}

// RateLimitError is returned when the client-side throttle refuses a call.
type RateLimitError struct {
	Method     string
	Path       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s %s, retry in %s", e.Method, e.Path, e.RetryAfter.Round(time.Second))
}

// UserMessage returns the text to show for err, preferring the backend's own words.
func UserMessage(err error, fallback string) string {
	var be *BackendError
	var rl *RateLimitError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, ErrNotAuthenticated):
		return "Please sign in first."
	case errors.As(err, &be) && be.Detail != "":
		return be.Detail
	case errors.As(err, &rl):
		return fmt.Sprintf("Too many requests. Please wait %d seconds before trying again.", int(rl.RetryAfter.Seconds()+0.999))
	default:
		return fallback
	}
}
