package reports

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/diagnoses"
	"tdm-diagnostic/internal/shared/server/respond"
)

// Handler serves stored reports.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches report routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/diagnoses/:id/report", h.download)
}

func (h *Handler) download(c *gin.Context) {
	id := c.Param("id")
	c.Set("diagnosisId", id)

	body, contentType, name, err := h.Svc.Open(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, diagnoses.ErrNotFound), errors.Is(err, diagnoses.ErrLeadNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "diagnosis not found", nil)
		case errors.Is(err, diagnoses.ErrNotCompleted):
			respond.Error(c, http.StatusConflict, "not_completed", "diagnosis not submitted yet", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load report", nil)
		}
		return
	}
	defer body.Close()

	disposition := "inline"
	if c.Query("download") == "1" {
		disposition = "attachment"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	c.Header("Cache-Control", "private, max-age=300")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		_ = c.Error(err)
	}
}
