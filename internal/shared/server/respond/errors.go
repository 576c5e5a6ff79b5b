package respond

import (
	"strings"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/shared/telemetry"
)

// ErrorBody is the error object every endpoint returns.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorBody as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error logs the failure with the request's lead and diagnosis ids, then
// aborts with the envelope. 5xx are logged as errors, the rest as warnings.
func Error(c *gin.Context, status int, code, message string, details any) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"method":     c.Request.Method,
		"path":       LogPath(c),
		"route":      c.FullPath(),
		"request_id": c.GetString("requestId"),
	}
	for key, field := range map[string]string{"leadId": "lead_id", "diagnosisId": "diagnosis_id"} {
		if v := c.GetString(key); v != "" {
			fields[field] = v
		}
	}
	log := telemetry.Warn
	if status >= 500 {
		log = telemetry.Error
	}
	log("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// LogPath is the request path with the :token route parameter masked.
func LogPath(c *gin.Context) string {
	path := c.Request.URL.Path
	if token := c.Param("token"); token != "" {
		path = strings.Replace(path, token, "[redacted]", 1)
	}
	return path
}
