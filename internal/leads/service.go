package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/telemetry"
	"tdm-diagnostic/internal/shared/util"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Service contains business logic for leads.
type Service struct {
	Repo     Repo
	Validate *validator.Validate
	Now      func() time.Time
}

// NewService constructs a Service with a fresh validator.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo, Validate: validator.New()}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// ValidationError carries per-field issues and matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Issue)
	}
	return "invalid lead: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Capture registers a lead by email. Known emails return the stored lead with isNew=false.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (Lead, bool, error) {
	in.Email = util.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Company = strings.TrimSpace(in.Company)

	if err := s.validator().Struct(&in); err != nil {
		return Lead{}, false, toValidationError(err)
	}

	now := s.now()
	lead := Lead{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      in.Name,
		Company:   in.Company,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stored, created, err := s.Repo.CreateIfAbsent(ctx, lead)
	if err != nil {
		return Lead{}, false, fmt.Errorf("capture lead: %w", err)
	}

	metrics.IncLeadCaptured(created)
	telemetry.Info("lead.captured", map[string]any{
		"lead_id": stored.ID,
		"is_new":  created,
	})
	return stored, created, nil
}

// Get returns a lead by id.
func (s *Service) Get(ctx context.Context, id string) (Lead, error) {
	if strings.TrimSpace(id) == "" {
		return Lead{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

// List returns leads newest first. limit is clamped to [1, MaxPageSize].
func (s *Service) List(ctx context.Context, limit, offset int) ([]Lead, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	limit = min(limit, MaxPageSize)
	return s.Repo.List(ctx, limit, max(offset, 0))
}

var defaultValidator = sync.OnceValue(func() *validator.Validate { return validator.New() })

func (s *Service) validator() *validator.Validate {
	if s.Validate == nil {
		return defaultValidator()
	}
	return s.Validate
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field: strings.ToLower(fe.Field()[:1]) + fe.Field()[1:],
			Issue: fe.Tag(),
		})
	}
	return out
}
