package diagnoses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"tdm-diagnostic/internal/diagnostic/scoring"
	"tdm-diagnostic/internal/leads"
	"tdm-diagnostic/internal/notify"
	"tdm-diagnostic/internal/queue"
	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/telemetry"
)

// LeadLookup resolves the lead owning a diagnosis.
type LeadLookup interface {
	GetByID(ctx context.Context, id string) (leads.Lead, error)
}

// Deliverer produces and sends the report of a completed diagnosis.
type Deliverer interface {
	Deliver(ctx context.Context, diagnosisID string) error
}

// Service contains business logic for diagnoses.
type Service struct {
	Repo        Repo
	Leads       LeadLookup
	Engine      *scoring.Engine
	Tokens      *TokenIssuer
	Mailer      notify.Mailer
	Queue       queue.Client
	Reports     Deliverer
	FrontendURL string
	Now         func() time.Time

	// drainMu orders inflight.Add against a running Wait.
	drainMu  sync.Mutex
	inflight sync.WaitGroup
}

// Start opens a diagnosis for an existing lead and emails the questionnaire link.
func (s *Service) Start(ctx context.Context, leadID, diagnosisType string) (Diagnosis, error) {
	typ, ok := ParseType(strings.TrimSpace(diagnosisType))
	if !ok {
		return Diagnosis{}, fmt.Errorf("%w: %q", ErrInvalidType, diagnosisType)
	}
	if strings.TrimSpace(leadID) == "" {
		return Diagnosis{}, ErrLeadNotFound
	}
	lead, err := s.Leads.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return Diagnosis{}, ErrLeadNotFound
		}
		return Diagnosis{}, fmt.Errorf("lead lookup: %w", err)
	}

	now := s.now()
	d := Diagnosis{
		ID:        uuid.NewString(),
		LeadID:    lead.ID,
		Type:      typ,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
	}
	token, _, err := s.Tokens.Issue(d.ID, d.LeadID)
	if err != nil {
		return Diagnosis{}, err
	}
	d.Token = token

	if err := s.Repo.Create(ctx, d); err != nil {
		return Diagnosis{}, err
	}

	metrics.IncDiagnosisStarted(string(typ))
	telemetry.Info("diagnosis.started", map[string]any{
		"request_id":   RequestIDFromContext(ctx),
		"lead_id":      d.LeadID,
		"diagnosis_id": d.ID,
		"type":         string(typ),
	})

	s.sendLink(ctx, lead, d)
	return d, nil
}

// LinkURL is the questionnaire page address carried by the link email.
func (s *Service) LinkURL(token string) string {
	return strings.TrimRight(s.FrontendURL, "/") + "/diagnostico/" + token
}

// GetByToken resolves a link token to its diagnosis and lead.
func (s *Service) GetByToken(ctx context.Context, token string) (Diagnosis, leads.Lead, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Diagnosis{}, leads.Lead{}, ErrInvalidToken
	}
	diagnosisID, leadID, err := s.Tokens.Verify(token)
	if err != nil {
		return Diagnosis{}, leads.Lead{}, err
	}
	d, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		return Diagnosis{}, leads.Lead{}, err
	}
	if d.ID != diagnosisID || d.LeadID != leadID {
		return Diagnosis{}, leads.Lead{}, ErrInvalidToken
	}
	lead, err := s.Leads.GetByID(ctx, d.LeadID)
	if err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return Diagnosis{}, leads.Lead{}, ErrLeadNotFound
		}
		return Diagnosis{}, leads.Lead{}, fmt.Errorf("lead lookup: %w", err)
	}
	return d, lead, nil
}

// Submit scores the answers of an open diagnosis and schedules report delivery.
// A link completes at most once; later submissions get ErrAlreadyCompleted.
func (s *Service) Submit(ctx context.Context, token string, answers scoring.AnswerSet) (Diagnosis, error) {
	d, _, err := s.GetByToken(ctx, token)
	if err != nil {
		return Diagnosis{}, err
	}
	if d.Completed() {
		return Diagnosis{}, ErrAlreadyCompleted
	}

	engine := s.engine()
	if err := engine.Catalog().Validate(answers); err != nil {
		return Diagnosis{}, err
	}
	result := engine.Score(answers)

	done, err := s.Repo.CompleteOnce(ctx, d.ID, Completion{
		Answers:     answers,
		Result:      result,
		CompletedAt: s.now(),
	})
	if err != nil {
		return Diagnosis{}, err
	}

	metrics.IncDiagnosisCompleted(result.MaturityLevel)
	fields := map[string]any{
		"request_id":     RequestIDFromContext(ctx),
		"lead_id":        done.LeadID,
		"diagnosis_id":   done.ID,
		"maturity_level": result.MaturityLevel,
		"user_score":     result.Benchmarking.UserScore,
	}
	if missing := engine.Catalog().Missing(answers); len(missing) > 0 {
		fields["missing_questions"] = missing
	}
	telemetry.Info("diagnosis.completed", fields)

	s.scheduleReport(ctx, done.ID)
	return done, nil
}

// GetResult returns the result view of a completed diagnosis.
func (s *Service) GetResult(ctx context.Context, id string) (ResultView, error) {
	if strings.TrimSpace(id) == "" {
		return ResultView{}, ErrNotFound
	}
	d, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return ResultView{}, err
	}
	if !d.Completed() || d.Result == nil {
		return ResultView{}, ErrNotCompleted
	}
	return ResultView{
		ID:              d.ID,
		Type:            d.Type,
		MaturityLevel:   d.Result.MaturityLevel,
		LevelName:       s.engine().Catalog().LevelName(d.Result.MaturityLevel),
		Scores:          d.Result.Scores,
		Gaps:            d.Result.Gaps,
		Recommendations: d.Result.Recommendations,
		Benchmarking:    d.Result.Benchmarking,
		ReportURL:       d.ReportURL,
		CompletedAt:     d.CompletedAt,
	}, nil
}

// ListForLead returns the diagnoses of a lead, newest first.
func (s *Service) ListForLead(ctx context.Context, leadID string) ([]Diagnosis, error) {
	if strings.TrimSpace(leadID) == "" {
		return nil, ErrLeadNotFound
	}
	if _, err := s.Leads.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, leads.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("lead lookup: %w", err)
	}
	return s.Repo.ListByLead(ctx, leadID)
}

// Wait blocks until in-process report deliveries finish or ctx is done.
// Deliveries scheduled while a Wait is draining start once the drain ends,
// even when ctx expired first.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.drainMu.Lock()
		defer s.drainMu.Unlock()
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// scheduleReport hands delivery to the job queue when one is configured and
// falls back to an in-process goroutine otherwise.
func (s *Service) scheduleReport(ctx context.Context, diagnosisID string) {
	if s.Queue != nil {
		msg := queue.NewReportJob(diagnosisID, RequestIDFromContext(ctx), s.now())
		err := s.Queue.Send(ctx, msg)
		if err == nil {
			telemetry.Info("report.enqueued", map[string]any{
				"request_id":   msg.RequestID,
				"diagnosis_id": diagnosisID,
			})
			return
		}
		telemetry.Warn("report.enqueue_failed", map[string]any{
			"request_id":   msg.RequestID,
			"diagnosis_id": diagnosisID,
			"error":        err.Error(),
		})
	}
	if s.Reports == nil {
		telemetry.Warn("report.skipped", map[string]any{
			"diagnosis_id": diagnosisID,
			"reason":       "no report deliverer configured",
		})
		return
	}
	s.drainMu.Lock()
	s.inflight.Add(1)
	s.drainMu.Unlock()
	go s.deliverAsync(backgroundWithRequestID(ctx), diagnosisID)
}

func (s *Service) deliverAsync(ctx context.Context, diagnosisID string) {
	defer s.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("report.panic", map[string]any{
				"request_id":   RequestIDFromContext(ctx),
				"diagnosis_id": diagnosisID,
				"error":        fmt.Sprintf("%v", r),
			})
			_ = s.Repo.MarkReportFailed(ctx, diagnosisID, fmt.Sprintf("panic: %v", r))
		}
	}()
	if err := s.Reports.Deliver(ctx, diagnosisID); err != nil {
		telemetry.Error("report.async_failed", map[string]any{
			"request_id":   RequestIDFromContext(ctx),
			"diagnosis_id": diagnosisID,
			"error":        err.Error(),
		})
	}
}

func (s *Service) sendLink(ctx context.Context, lead leads.Lead, d Diagnosis) {
	if s.Mailer == nil {
		return
	}
	msg, err := notify.LinkEmail(lead.Email, notify.LinkData{
		Name:      lead.Name,
		URL:       s.LinkURL(d.Token),
		ValidDays: s.Tokens.ValidDays(),
	})
	if err == nil {
		err = s.Mailer.Send(ctx, msg)
	}
	if err != nil {
		telemetry.Warn("diagnosis.link_email_failed", map[string]any{
			"request_id":   RequestIDFromContext(ctx),
			"lead_id":      lead.ID,
			"diagnosis_id": d.ID,
			"error":        err.Error(),
		})
	}
}

func (s *Service) engine() *scoring.Engine {
	if s.Engine == nil {
		return scoring.NewEngine(nil)
	}
	return s.Engine
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
