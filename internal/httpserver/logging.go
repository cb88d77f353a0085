package httpserver

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/abtest-service/internal/identity"
)

// requestLogger writes one structured line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"visitor_id", identity.FromContext(c).ID,
		)
	}
}
