package errors

import "net/http"

// ErrorCode is the machine-readable code rendered in every error body.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"

	// ErrCodeAuthenticationFailed covers any provider assertion or session
	// token that did not verify.
	ErrCodeAuthenticationFailed ErrorCode = "AUTHENTICATION_FAILED"
	// ErrCodeForbidden is an authenticated caller acting on someone else.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	ErrCodeAlreadyFriends                    ErrorCode = "ALREADY_FRIENDS"
	ErrCodeFriendRequestNotFound             ErrorCode = "FRIEND_REQUEST_NOT_FOUND"
	ErrCodeFriendRequestExistsOtherDirection ErrorCode = "FRIEND_REQUEST_EXISTS_IN_OTHER_DIRECTION"

	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError   ErrorCode = "DATABASE_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// codeInfo is the default rendering of a code.
type codeInfo struct {
	status    int
	retryable bool
	message   string
}

var codes = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true, "The %s is temporarily unavailable. Please try again."},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true, "The request took too long. Please try again."},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true, "Too many requests. Please wait a moment and try again."},

	ErrCodeNotFound:      {http.StatusNotFound, false, "The requested %s was not found."},
	ErrCodeAlreadyExists: {http.StatusConflict, false, "A %s with these details already exists."},
	ErrCodeInvalidInput:  {http.StatusBadRequest, false, "Invalid input: %s"},

	ErrCodeAuthenticationFailed: {http.StatusUnauthorized, false, "Authentication failed."},
	ErrCodeForbidden:            {http.StatusForbidden, false, "You don't have permission to perform this action."},

	ErrCodeAlreadyFriends:                    {http.StatusBadRequest, false, "Users are already friends."},
	ErrCodeFriendRequestNotFound:             {http.StatusBadRequest, false, "Friend request does not exist."},
	ErrCodeFriendRequestExistsOtherDirection: {http.StatusBadRequest, false, "A friend request in the other direction already exists."},

	ErrCodeInternal:        {http.StatusInternalServerError, false, "An unexpected error occurred. Please try again or contact support."},
	ErrCodeDatabaseError:   {http.StatusInternalServerError, true, "A database error occurred. Please try again."},
	ErrCodeExternalService: {http.StatusBadGateway, true, "The %s service encountered an error. Please try again."},
}

// IsRetryableCode reports whether a client may retry after code.
func IsRetryableCode(code ErrorCode) bool {
	return codes[code].retryable
}
