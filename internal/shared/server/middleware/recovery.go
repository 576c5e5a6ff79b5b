package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/server/respond"
	"tdm-diagnostic/internal/shared/telemetry"
)

// Recovery turns handler panics into a 500 envelope and a panic log carrying
// the lead and diagnosis ids set so far.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			fields := map[string]any{
				"request_id": RequestIDFromContext(c),
				"error":      rec,
				"stack":      string(debug.Stack()),
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
			}
			if leadID := c.GetString("leadId"); leadID != "" {
				fields["lead_id"] = leadID
			}
			if diagnosisID := c.GetString("diagnosisId"); diagnosisID != "" {
				fields["diagnosis_id"] = diagnosisID
			}
			telemetry.Error("panic", fields)
			metrics.IncPanic(c.FullPath())

			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
		}()
		c.Next()
	}
}
