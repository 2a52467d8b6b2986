package api

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/pvpauth/auth/authctx"
	"github.com/kbukum/pvpauth/auth/provider"
	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/server"
	"github.com/kbukum/pvpauth/validation"
)

type signInRequest struct {
	OAuthData *provider.Envelope `json:"oauthData" validate:"required"`
}

type signUpRequest struct {
	Username  string             `json:"username" validate:"required,username"`
	OAuthData *provider.Envelope `json:"oauthData" validate:"required"`
}

type sendFriendRequestRequest struct {
	ReceiverID string  `json:"receiverId" validate:"required,uuid"`
	Message    *string `json:"message" validate:"omitempty,max=500"`
}

// bind decodes and validates the JSON body into dst. On failure it has
// already answered the request.
func bind(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var appErr *errors.AppError
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &appErr):
	case stderrors.As(err, &tooLarge):
		appErr = errors.New(errors.ErrCodeInvalidInput, "Request body is too large.", http.StatusRequestEntityTooLarge)
	case stderrors.Is(err, provider.ErrInvalidData):
		appErr = errors.InvalidInput("oauthData", "the oauth data is malformed")
	default:
		appErr = errors.InvalidInput("body", "the request body is not valid JSON")
	}
	server.RespondWithError(c, appErr.WithCause(err))
	return false
}

// pathID parses a uuid path parameter. On failure it has already answered.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	v := validation.New()
	id := v.ParseUUID(name, c.Param(name))
	if err := v.Err(); err != nil {
		server.RespondWithError(c, err)
		return uuid.Nil, false
	}
	return id, true
}

// caller returns the session user. The session middleware guarantees one.
func caller(c *gin.Context) uuid.UUID {
	return authctx.MustUserID(c.Request.Context())
}

// requireSelf lets the request through only when the session user is
// :user_id.
func (h *Handler) requireSelf(c *gin.Context) {
	userID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	if caller(c) != userID {
		server.RespondWithError(c, errors.Forbidden("You can only act on your own account."))
		return
	}
	c.Next()
}

func (h *Handler) notFound(c *gin.Context) {
	server.RespondWithError(c, errors.NotFound("route", ""))
}

func (h *Handler) methodNotAllowed(c *gin.Context) {
	server.RespondWithError(c, errors.New(errors.ErrCodeInvalidInput, "Method not allowed.", http.StatusMethodNotAllowed))
}
