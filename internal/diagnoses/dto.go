package diagnoses

import (
	"time"

	"tdm-diagnostic/internal/diagnostic/scoring"
)

type startRequest struct {
	LeadID string `json:"leadId"`
	Type   string `json:"type"`
}

// submitRequest carries answers keyed by question id, e.g. {"1": 3, "9": 2}.
type submitRequest struct {
	Answers scoring.AnswerSet `json:"answers"`
}

type tokenView struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Status      Status     `json:"status"`
	LeadName    string     `json:"leadName,omitempty"`
	Company     string     `json:"company,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// adminView exposes delivery state that public views hide.
type adminView struct {
	ID                string     `json:"id"`
	Type              Type       `json:"type"`
	Status            Status     `json:"status"`
	MaturityLevel     int        `json:"maturityLevel,omitempty"`
	ReportURL         string     `json:"reportUrl,omitempty"`
	ReportPages       int        `json:"reportPages,omitempty"`
	ReportDeliveredAt *time.Time `json:"reportDeliveredAt,omitempty"`
	ReportError       string     `json:"reportError,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

func toAdminView(d Diagnosis) adminView {
	level := d.MaturityLevel
	if level == 0 && d.Result != nil {
		level = d.Result.MaturityLevel
	}
	return adminView{
		ID:                d.ID,
		Type:              d.Type,
		Status:            d.Status,
		MaturityLevel:     level,
		ReportURL:         d.ReportURL,
		ReportPages:       d.ReportPages,
		ReportDeliveredAt: d.ReportDeliveredAt,
		ReportError:       d.ReportError,
		CreatedAt:         d.CreatedAt,
		CompletedAt:       d.CompletedAt,
	}
}
