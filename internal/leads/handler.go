package leads

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the leads service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches lead routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.capture)
}

// RegisterAdminRoutes attaches lead listing to an authenticated group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads", h.list)
}

func (h *Handler) list(c *gin.Context) {
	limit, err := queryInt(c, "limit", DefaultPageSize)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a number", nil)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be a non-negative number", nil)
		return
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	items, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list leads", nil)
		return
	}
	respond.Private(c, gin.H{
		"items":  items,
		"limit":  limit,
		"offset": offset,
	})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func (h *Handler) capture(c *gin.Context) {
	var in CaptureInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}

	lead, isNew, err := h.Svc.Capture(c.Request.Context(), in)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid lead", verr.Fields)
		case errors.Is(err, ErrValidation):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid lead", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to capture lead", nil)
		}
		return
	}
	c.Set("leadId", lead.ID)

	status := http.StatusOK
	if isNew {
		status = http.StatusCreated
	}
	respond.JSON(c, status, gin.H{
		"success": true,
		"leadId":  lead.ID,
		"isNew":   isNew,
	})
}
