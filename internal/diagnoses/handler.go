package diagnoses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"tdm-diagnostic/internal/diagnostic/scoring"
	"tdm-diagnostic/internal/shared/server/middleware"
	"tdm-diagnostic/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the diagnoses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches diagnosis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/questionnaire", h.questionnaire)
	rg.POST("/diagnoses", h.start)
	rg.GET("/diagnoses/token/:token", h.getByToken)
	rg.POST("/diagnoses/token/:token/submit", h.submit)
	rg.GET("/diagnoses/:id/result", h.result)
}

// RegisterAdminRoutes attaches per-lead listing to an authenticated group.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/leads/:id/diagnoses", h.listForLead)
}

func (h *Handler) listForLead(c *gin.Context) {
	leadID := c.Param("id")
	c.Set("leadId", leadID)
	list, err := h.Svc.ListForLead(c.Request.Context(), leadID)
	if err != nil {
		h.writeError(c, err, "failed to list diagnoses")
		return
	}
	items := make([]adminView, 0, len(list))
	for _, d := range list {
		items = append(items, toAdminView(d))
	}
	respond.Private(c, gin.H{"items": items})
}

func (h *Handler) questionnaire(c *gin.Context) {
	respond.OK(c, h.Svc.engine().Catalog().Public())
}

func (h *Handler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	c.Set("leadId", req.LeadID)

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	d, err := h.Svc.Start(ctx, req.LeadID, req.Type)
	if err != nil {
		h.writeError(c, err, "failed to start diagnosis")
		return
	}
	c.Set("diagnosisId", d.ID)
	respond.Created(c, gin.H{
		"success":     true,
		"diagnosisId": d.ID,
		"token":       d.Token,
	})
}

func (h *Handler) getByToken(c *gin.Context) {
	d, lead, err := h.Svc.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.writeError(c, err, "failed to load diagnosis")
		return
	}
	c.Set("leadId", d.LeadID)
	c.Set("diagnosisId", d.ID)
	respond.Private(c, tokenView{
		ID:          d.ID,
		Type:        d.Type,
		Status:      d.Status,
		LeadName:    lead.Name,
		Company:     lead.Company,
		CreatedAt:   d.CreatedAt,
		CompletedAt: d.CompletedAt,
	})
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "answers must map question ids to option values", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	d, err := h.Svc.Submit(ctx, c.Param("token"), req.Answers)
	if err != nil {
		h.writeError(c, err, "failed to submit diagnosis")
		return
	}
	c.Set("leadId", d.LeadID)
	c.Set("diagnosisId", d.ID)
	c.Set("statusTransition", string(StatusInProgress)+"->"+string(StatusCompleted))
	respond.OK(c, gin.H{
		"success":     true,
		"diagnosisId": d.ID,
		"result":      d.Result,
	})
}

func (h *Handler) result(c *gin.Context) {
	id := c.Param("id")
	c.Set("diagnosisId", id)
	view, err := h.Svc.GetResult(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err, "failed to load result")
		return
	}
	respond.Private(c, view)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidType):
		respond.Error(c, http.StatusBadRequest, "validation_error", "type must be express or complete", nil)
	case errors.Is(err, scoring.ErrInvalidAnswer):
		respond.Error(c, http.StatusBadRequest, "invalid_answer", err.Error(), nil)
	case errors.Is(err, ErrLeadNotFound):
		respond.Error(c, http.StatusNotFound, "lead_not_found", "lead not found", nil)
	case errors.Is(err, ErrTokenExpired):
		respond.Error(c, http.StatusGone, "token_expired", "diagnosis link expired", nil)
	case errors.Is(err, ErrInvalidToken):
		respond.Error(c, http.StatusNotFound, "not_found", "diagnosis not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "diagnosis not found", nil)
	case errors.Is(err, ErrAlreadyCompleted):
		respond.Error(c, http.StatusConflict, "already_completed", "diagnosis already submitted", nil)
	case errors.Is(err, ErrNotCompleted):
		respond.Error(c, http.StatusConflict, "not_completed", "diagnosis not submitted yet", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
