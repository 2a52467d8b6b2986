package keycache

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned when a fresh key set has no key with the requested id.
	ErrKeyNotFound = errors.New("keycache: key not found")
	// ErrFetchFailed marks every failure to obtain a new key set.
	ErrFetchFailed = errors.New("keycache: fetch failed")
	// ErrDecode is wrapped by a *FetchError when the body was not a usable key set.
	ErrDecode = errors.New("keycache: malformed key set")
)

// FetchError describes a failed refresh of the key set.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("keycache: fetch %s (HTTP %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("keycache: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports every FetchError as ErrFetchFailed.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }
