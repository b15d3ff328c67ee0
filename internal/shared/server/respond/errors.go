package respond

import (
	"github.com/gin-gonic/gin"

	"habit-gallery/internal/shared/telemetry"
)

// ErrorResponse is the error body shared by every gallery endpoint.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Error logs and sends a standardized error response.
func Error(c *gin.Context, status int, message string) {
	fields := map[string]any{
		"status":     status,
		"error":      message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if workID := c.GetString("workId"); workID != "" {
		fields["work_id"] = workID
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message})
}
