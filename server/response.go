package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/pvpauth/errors"
	"github.com/kbukum/pvpauth/logger"
)

// RespondWithError renders err as the JSON error envelope. Errors that are
// not an *errors.AppError become a 500. 5xx causes are logged; the cause is
// never rendered.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		fields := map[string]interface{}{
			"code":   string(appErr.Code),
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}
		if appErr.Cause != nil {
			fields["error"] = appErr.Cause.Error()
		}
		logger.WithContext(c.Request.Context()).Error("Request failed", fields)
	}
	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response with body as-is.
func RespondOK(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// RespondCreated sends a 201 response with body as-is.
func RespondCreated(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, body)
}

// RespondNoContent sends a 204 with no body.
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
