package provider

import "errors"

var (
	// ErrInvalidData is returned for OAuthData that cannot be verified at all.
	ErrInvalidData = errors.New("provider: invalid oauth data")
	// ErrAuthentication is returned when the provider or the token's
	// signature rejects the credential.
	ErrAuthentication = errors.New("provider: authentication failed")
	// ErrCommunication is returned when the provider could not be reached
	// or answered with something unusable.
	ErrCommunication = errors.New("provider: communication failed")
)
