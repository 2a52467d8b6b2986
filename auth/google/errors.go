package google

import "errors"

// ErrVerification is wrapped by every reason a token is rejected.
var ErrVerification = errors.New("google: id token rejected")

var (
	ErrMalformed   = verificationError("malformed token")
	ErrUnknownKey  = verificationError("unknown signing key")
	ErrSignature   = verificationError("invalid signature")
	ErrExpired     = verificationError("token expired")
	ErrNotYetValid = verificationError("token not valid yet")
	ErrAudience    = verificationError("audience mismatch")
	ErrIssuer      = verificationError("issuer mismatch")
)

// ErrKeyFetch is returned when the signing keys could not be obtained.
var ErrKeyFetch = errors.New("google: signing keys unavailable")

type rejection struct{ msg string }

func verificationError(msg string) error { return &rejection{msg: msg} }

func (r *rejection) Error() string { return "google: " + r.msg }

func (r *rejection) Unwrap() error { return ErrVerification }
