package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pvpauth/auth/authctx"
	"github.com/kbukum/pvpauth/auth/session"
	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/observability"
)

// SessionVerifier verifies a session token.
type SessionVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// Session returns a Gin middleware that requires "Authorization: Bearer
// <session>". Verified claims are stored with authctx.WithSession. Any
// missing, malformed, expired or forged token gets the same 401.
func Session(verifier SessionVerifier, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthenticated(c, log, "missing bearer token")
			return
		}
		claims, err := verifier.Verify(token)
		if err != nil {
			abortUnauthenticated(c, log, err.Error())
			return
		}

		ctx := authctx.WithSession(c.Request.Context(), claims)
		ctx = logger.ContextWithUserID(ctx, claims.Subject)
		observability.RequestFromContext(ctx).SetUser(claims.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortUnauthenticated(c *gin.Context, log *logger.Logger, reason string) {
	log.WithContext(c.Request.Context()).Debug("Session rejected", map[string]interface{}{
		"path":   c.Request.URL.Path,
		"reason": reason,
	})
	appErr := errors.AuthenticationFailed()
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}
