package diagnoses

import "context"

// Repo defines persistence operations for diagnoses.
type Repo interface {
	Create(ctx context.Context, d Diagnosis) error
	GetByID(ctx context.Context, id string) (Diagnosis, error)
	GetByToken(ctx context.Context, token string) (Diagnosis, error)
	// CompleteOnce stores answers and result only while the diagnosis is in
	// progress; otherwise it returns ErrAlreadyCompleted.
	CompleteOnce(ctx context.Context, id string, c Completion) (Diagnosis, error)
	UpdateReport(ctx context.Context, id string, rec ReportRecord) error
	MarkReportFailed(ctx context.Context, id, reason string) error
	ListByLead(ctx context.Context, leadID string) ([]Diagnosis, error)
}
