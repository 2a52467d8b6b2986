package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/pvpauth/logger"
	"github.com/kbukum/pvpauth/observability"
)

// Operations returns a Gin middleware that wraps each routed request in an
// observability.Request named after the route pattern. Unrouted requests
// and probes pass through untraced. metrics may be nil or return nil.
func Operations(metrics func() *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || probePaths[route] {
			c.Next()
			return
		}

		var m *observability.Metrics
		if metrics != nil {
			m = metrics()
		}
		ctx, req := observability.StartRequest(c.Request.Context(), c.Request.Method, route,
			logger.RequestIDFromContext(c.Request.Context()), m)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}
		req.End(ctx, c.Writer.Status(), err)
	}
}
