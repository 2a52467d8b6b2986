package social

import "errors"

var (
	ErrSelfRequest                   = errors.New("social: cannot send a friend request to yourself")
	ErrAlreadyFriends                = errors.New("social: already friends")
	ErrRequestExists                 = errors.New("social: friend request already sent")
	ErrRequestExistsInOtherDirection = errors.New("social: friend request exists in other direction")
	ErrRequestNotFound               = errors.New("social: friend request doesn't exist")
)
