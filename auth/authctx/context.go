// Package authctx carries the verified session of a request through its
// context.
//
//	ctx = authctx.WithSession(ctx, claims)   // session middleware
//	uid, err := authctx.UserID(ctx)          // handlers
package authctx

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/auth/session"
)

type contextKey struct{}

// ErrNoSession is returned when the request was not authenticated.
var ErrNoSession = errors.New("authctx: no session in context")

// WithSession stores verified session claims in ctx.
func WithSession(ctx context.Context, claims *session.Claims) context.Context {
	return context.WithValue(ctx, contextKey{}, claims)
}

// Session returns the session claims stored in ctx.
func Session(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(contextKey{}).(*session.Claims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user's id.
func UserID(ctx context.Context) (uuid.UUID, error) {
	claims, ok := Session(ctx)
	if !ok {
		return uuid.Nil, ErrNoSession
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrNoSession
	}
	return id, nil
}

// MustUserID is UserID for handlers mounted behind the session middleware.
// It panics when there is no session.
func MustUserID(ctx context.Context) uuid.UUID {
	id, err := UserID(ctx)
	if err != nil {
		panic(err)
	}
	return id
}
