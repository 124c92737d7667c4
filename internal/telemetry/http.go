package telemetry

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// HTTPLogger logs the start and finish of every request with the caller's
// method, path, status and latency.
func HTTPLogger(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		l.InfoContext(c.Request.Context(), "http: started call",
			"method", c.Request.Method,
			"path", c.FullPath(),
		)

		c.Next()

		l.InfoContext(c.Request.Context(), "http: finished call",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
