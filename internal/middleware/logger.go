package middleware

import (
	"time"

	"medbot-server/internal/logging"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one structured line per request.
func RequestLogger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if username, ok := GetUsernameFromContext(c); ok {
			attrs = append(attrs, "username", username)
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("request completed", attrs...)
		case len(c.Errors) > 0:
			logger.Warn("request completed", append(attrs, "errors", c.Errors.String())...)
		default:
			logger.Info("request completed", attrs...)
		}
	}
}
