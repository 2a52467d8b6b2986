package lichess

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderCommunication marks every failed exchange with Lichess.
	ErrProviderCommunication = errors.New("lichess: provider communication failed")
	// ErrDecode is returned when Lichess answers 2xx with an unexpected body.
	ErrDecode = errors.New("lichess: malformed provider response")
	// ErrRejected is returned when Lichess refuses the code or the token.
	ErrRejected = errors.New("lichess: credentials rejected")
)

// ProviderError describes a failed call to one Lichess endpoint.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("lichess: %s (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lichess: %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProviderCommunication }
