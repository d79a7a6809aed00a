// Package apperr defines the error vocabulary shared across kbmirror.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrMissingBookID = errors.New("source has no resolvable book id")
	ErrEmptyTree     = errors.New("source node sequence is empty")
)

// FetchError reports a failed collaborator call (tree source, document
// content, or embedded image). Status is zero when the failure happened
// before an HTTP response was received.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
