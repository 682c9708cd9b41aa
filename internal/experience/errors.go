// Package experience manages the signed-in user's stored experience records
// and loads them from import files.
package experience

import (
	"errors"
	"fmt"
)

// ErrNothingToParse is returned by ParseLinkedIn when every section is blank.
var ErrNothingToParse = errors.New("paste at least one LinkedIn section to parse")

// LoadError is returned when an import file cannot be read, decoded or
// validated. Path is empty for content that did not come from a file.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := "load error: "
	if e.Path != "" {
		msg += e.Path + ": "
	}
	msg += e.Message
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// NormalizationError is returned for a record that cannot be stored, such as
// an unknown type, a duplicate id or a field over the backend's limits.
type NormalizationError struct {
	Message string
	Cause   error
}

func (e *NormalizationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("normalization error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("normalization error: %s", e.Message)
}

func (e *NormalizationError) Unwrap() error {
	return e.Cause
}
