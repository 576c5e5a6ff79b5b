package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/server/respond"
	"tdm-diagnostic/internal/shared/telemetry"
)

// Logging emits request.complete per request and records its duration.
// Questionnaire link tokens are masked in the logged path.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, status, latency)

		telemetry.Info("request.complete", map[string]any{
			"request_id":        RequestIDFromContext(c),
			"method":            c.Request.Method,
			"path":              respond.LogPath(c),
			"route":             route,
			"status":            status,
			"status_transition": c.GetString("statusTransition"),
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"lead_id":           c.GetString("leadId"),
			"diagnosis_id":      c.GetString("diagnosisId"),
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
