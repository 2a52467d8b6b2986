package identity

import "errors"

var (
	// ErrUsernameConflict is returned by LinkNewUser when the chosen
	// user_name is taken.
	ErrUsernameConflict = errors.New("identity: username already taken")
	// ErrIdentityLinked is returned by LinkNewUser when the external
	// identity already belongs to a user.
	ErrIdentityLinked = errors.New("identity: external identity already linked")
	// ErrUserNotFound is returned when a user id does not exist.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrUnknownProvider is returned for a provider without an identity table.
	ErrUnknownProvider = errors.New("identity: unknown provider")
)
