package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"habit-gallery/internal/shared/telemetry"
)

// quietRoutes are polled by tooling and only logged at debug level.
var quietRoutes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Logging emits one structured line per request. Handlers may set "workId"
// and "analysisMode" on the context to have them included.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		fields := map[string]any{
			"request_id":    RequestIDFromContext(c),
			"method":        c.Request.Method,
			"path":          c.Request.URL.Path,
			"route":         route,
			"status":        status,
			"duration_ms":   float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes_out":     c.Writer.Size(),
			"work_id":       c.GetString("workId"),
			"analysis_mode": c.GetString("analysisMode"),
			"client_ip":     c.ClientIP(),
			"user_agent":    c.Request.UserAgent(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case quietRoutes[route]:
			telemetry.Debug("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
