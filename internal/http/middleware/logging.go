package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// Logging tags each request with an id (reusing an incoming X-Request-ID)
// and logs one line when it completes.
func Logging(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		attrs := []slog.Attr{
			slog.String("request_id", requestID),
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("ip", c.ClientIP()),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes", c.Writer.Size()),
		}
		if handle, ok := CurrentHandle(c); ok {
			attrs = append(attrs, slog.String("user_id", handle.UserID))
		}

		ctx := c.Request.Context()

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
			logger.LogAttrs(ctx, slog.LevelError, "request completed with errors", attrs...)
			return
		}

		logger.LogAttrs(ctx, slog.LevelInfo, "request completed", attrs...)
	}
}
