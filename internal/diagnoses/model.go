package diagnoses

import (
	"time"

	"tdm-diagnostic/internal/diagnostic/scoring"
)

// Type is the questionnaire variant a diagnosis was started with.
type Type string

const (
	TypeExpress  Type = "express"
	TypeComplete Type = "complete"
)

// ParseType normalizes a requested type; empty means express.
func ParseType(s string) (Type, bool) {
	switch Type(s) {
	case "", TypeExpress:
		return TypeExpress, true
	case TypeComplete:
		return TypeComplete, true
	default:
		return "", false
	}
}

// Status of a diagnosis.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Diagnosis is one questionnaire run for a lead.
type Diagnosis struct {
	ID                string            `json:"id"`
	LeadID            string            `json:"leadId"`
	Type              Type              `json:"type"`
	Status            Status            `json:"status"`
	Token             string            `json:"-"`
	Answers           scoring.AnswerSet `json:"answers,omitempty"`
	Result            *scoring.Result   `json:"result,omitempty"`
	MaturityLevel     int               `json:"maturityLevel,omitempty"`
	ReportKey         string            `json:"-"`
	ReportURL         string            `json:"reportUrl,omitempty"`
	ReportPages       int               `json:"reportPages,omitempty"`
	ReportDeliveredAt *time.Time        `json:"reportDeliveredAt,omitempty"`
	ReportError       string            `json:"-"`
	CreatedAt         time.Time         `json:"createdAt"`
	CompletedAt       *time.Time        `json:"completedAt,omitempty"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Completed reports whether answers were already scored.
func (d Diagnosis) Completed() bool {
	return d.Status == StatusCompleted
}

// Completion is what CompleteOnce persists.
type Completion struct {
	Answers     scoring.AnswerSet
	Result      scoring.Result
	CompletedAt time.Time
}

// ReportRecord is the outcome of a successful report delivery.
type ReportRecord struct {
	Key         string
	URL         string
	Pages       int
	DeliveredAt time.Time
}

// ResultView is the public shape of a completed diagnosis.
type ResultView struct {
	ID              string                   `json:"id"`
	Type            Type                     `json:"type"`
	MaturityLevel   int                      `json:"maturityLevel"`
	LevelName       string                   `json:"levelName"`
	Scores          map[int]float64          `json:"scores"`
	Gaps            []scoring.Gap            `json:"gaps"`
	Recommendations []scoring.Recommendation `json:"recommendations"`
	Benchmarking    scoring.Benchmarking     `json:"benchmarking"`
	ReportURL       string                   `json:"reportUrl,omitempty"`
	CompletedAt     *time.Time               `json:"completedAt,omitempty"`
}
