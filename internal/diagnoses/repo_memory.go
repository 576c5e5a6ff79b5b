package diagnoses

import (
	"context"
	"sort"
	"sync"
	"time"

	"tdm-diagnostic/internal/diagnostic/scoring"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Diagnosis
	byToken map[string]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Diagnosis),
		byToken: make(map[string]string),
	}
}

// Create stores a new diagnosis.
func (r *MemoryRepo) Create(ctx context.Context, d Diagnosis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = cloneDiagnosis(d)
	if d.Token != "" {
		r.byToken[d.Token] = d.ID
	}
	return nil
}

// GetByID returns a diagnosis by id.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return Diagnosis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[id]
	if !ok {
		return Diagnosis{}, ErrNotFound
	}
	return cloneDiagnosis(d), nil
}

// GetByToken returns a diagnosis by its link token.
func (r *MemoryRepo) GetByToken(ctx context.Context, token string) (Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return Diagnosis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byToken[token]
	if !ok {
		return Diagnosis{}, ErrNotFound
	}
	return cloneDiagnosis(r.byID[id]), nil
}

// CompleteOnce marks the diagnosis completed if it is still in progress.
func (r *MemoryRepo) CompleteOnce(ctx context.Context, id string, c Completion) (Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return Diagnosis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Diagnosis{}, ErrNotFound
	}
	if d.Status != StatusInProgress {
		return Diagnosis{}, ErrAlreadyCompleted
	}
	result := c.Result
	completedAt := c.CompletedAt
	d.Status = StatusCompleted
	d.Answers = cloneAnswers(c.Answers)
	d.Result = &result
	d.MaturityLevel = result.MaturityLevel
	d.CompletedAt = &completedAt
	d.UpdatedAt = completedAt
	r.byID[id] = d
	return cloneDiagnosis(d), nil
}

// UpdateReport records a delivered report and clears any previous failure.
func (r *MemoryRepo) UpdateReport(ctx context.Context, id string, rec ReportRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	deliveredAt := rec.DeliveredAt
	d.ReportKey = rec.Key
	d.ReportURL = rec.URL
	d.ReportPages = rec.Pages
	d.ReportDeliveredAt = &deliveredAt
	d.ReportError = ""
	d.UpdatedAt = deliveredAt
	r.byID[id] = d
	return nil
}

// MarkReportFailed records why report delivery failed.
func (r *MemoryRepo) MarkReportFailed(ctx context.Context, id, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.ReportError = reason
	d.UpdatedAt = time.Now().UTC()
	r.byID[id] = d
	return nil
}

// ListByLead returns a lead's diagnoses newest first.
func (r *MemoryRepo) ListByLead(ctx context.Context, leadID string) ([]Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := []Diagnosis{}
	for _, d := range r.byID {
		if d.LeadID == leadID {
			out = append(out, cloneDiagnosis(d))
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneDiagnosis(d Diagnosis) Diagnosis {
	d.Answers = cloneAnswers(d.Answers)
	if d.Result != nil {
		res := *d.Result
		d.Result = &res
	}
	return d
}

func cloneAnswers(a scoring.AnswerSet) scoring.AnswerSet {
	if a == nil {
		return nil
	}
	out := make(scoring.AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
