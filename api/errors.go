package api

import (
	stderrors "errors"

	"github.com/kbukum/pvpauth/database"
	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/identity"
	"github.com/kbukum/pvpauth/social"
)

// storeError converts identity and social errors to an *errors.AppError.
// Database failures go through database.FromDatabase with resource.
func storeError(err error, resource string) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var appErr *errors.AppError
	switch {
	case stderrors.Is(err, social.ErrSelfRequest):
		appErr = errors.InvalidInput("receiverId", "cannot send a friend request to yourself")
	case stderrors.Is(err, social.ErrAlreadyFriends):
		appErr = errors.AlreadyFriends()
	case stderrors.Is(err, social.ErrRequestExistsInOtherDirection):
		appErr = errors.FriendRequestExistsOtherDirection()
	case stderrors.Is(err, social.ErrRequestExists):
		appErr = errors.AlreadyExists("friend request")
	case stderrors.Is(err, social.ErrRequestNotFound):
		appErr = errors.FriendRequestNotFound()
	case stderrors.Is(err, identity.ErrUserNotFound):
		appErr = errors.NotFound("user", "")
	default:
		return database.FromDatabase(err, resource)
	}
	return appErr.WithCause(err)
}

// peerError reports any peer-store failure as redis being unavailable.
func peerError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.ServiceUnavailable("redis").WithCause(err)
}
