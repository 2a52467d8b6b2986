// Package errors provides the service-wide application error type.
// Every failure that crosses an HTTP handler is an *AppError carrying a
// machine-readable code, the HTTP status it maps to and whether a client may
// retry.
package errors

import (
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	// Cause is logged, never rendered.
	Cause error `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause attaches the underlying error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates an AppError with an explicit message and status. Retryable
// follows the code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// fromCode renders code with its default status and message. args fill the
// message verbs; details may be nil.
func fromCode(code ErrorCode, details map[string]any, args ...any) *AppError {
	info := codes[code]
	msg := info.message
	if strings.Contains(msg, "%") {
		msg = fmt.Sprintf(msg, args...)
	}
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: info.status,
		Retryable:  info.retryable,
		Details:    details,
	}
}

// ServiceUnavailable reports a dependency that is down or saturated.
func ServiceUnavailable(service string) *AppError {
	return fromCode(ErrCodeServiceUnavailable, map[string]any{"service": service}, service)
}

func Timeout(operation string) *AppError {
	return fromCode(ErrCodeTimeout, map[string]any{"operation": operation})
}

func RateLimited() *AppError {
	return fromCode(ErrCodeRateLimited, nil)
}

// NotFound names the missing resource and, when known, its id.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return fromCode(ErrCodeNotFound, details, resource)
}

func AlreadyExists(resource string) *AppError {
	return fromCode(ErrCodeAlreadyExists, map[string]any{"resource": resource}, resource)
}

// InvalidInput rejects one field of a request. field may be empty.
func InvalidInput(field, reason string) *AppError {
	details := map[string]any{}
	if field != "" {
		details["field"] = field
	}
	return fromCode(ErrCodeInvalidInput, details, reason)
}

// Validation rejects a request with a complete, client-facing message.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message, codes[ErrCodeInvalidInput].status)
}

// AuthenticationFailed is the uniform 401. The message never says which
// check failed.
func AuthenticationFailed() *AppError {
	return fromCode(ErrCodeAuthenticationFailed, nil)
}

func Forbidden(reason string) *AppError {
	e := fromCode(ErrCodeForbidden, nil)
	if reason != "" {
		e.Message = reason
	}
	return e
}

func AlreadyFriends() *AppError {
	return fromCode(ErrCodeAlreadyFriends, nil)
}

// FriendRequestNotFound is returned when accepting a request that was never
// sent.
func FriendRequestNotFound() *AppError {
	return fromCode(ErrCodeFriendRequestNotFound, nil)
}

// FriendRequestExistsOtherDirection is returned when the receiver already
// asked the sender; the sender should accept instead.
func FriendRequestExistsOtherDirection() *AppError {
	return fromCode(ErrCodeFriendRequestExistsOtherDirection, nil)
}

func Internal(cause error) *AppError {
	return fromCode(ErrCodeInternal, nil).WithCause(cause)
}

func DatabaseError(cause error) *AppError {
	return fromCode(ErrCodeDatabaseError, nil).WithCause(cause)
}

// ExternalServiceError reports a failed identity provider call. The cause
// is kept for logs only.
func ExternalServiceError(service string, cause error) *AppError {
	return fromCode(ErrCodeExternalService, map[string]any{"service": service}, service).WithCause(cause)
}
