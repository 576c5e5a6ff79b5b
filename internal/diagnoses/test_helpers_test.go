package diagnoses

import (
	"context"
	"sync"
	"testing"
	"time"

	"tdm-diagnostic/internal/leads"
	"tdm-diagnostic/internal/notify"
	"tdm-diagnostic/internal/queue"
)

var testNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

type recordingMailer struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return m.err
}

func (m *recordingMailer) sent() []notify.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Message(nil), m.msgs...)
}

type stubQueue struct {
	mu   sync.Mutex
	msgs []queue.Message
	err  error
}

func (q *stubQueue) Send(_ context.Context, msg queue.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msg)
	return nil
}

type stubDeliverer struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (d *stubDeliverer) Deliver(_ context.Context, diagnosisID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, diagnosisID)
	return d.err
}

func (d *stubDeliverer) delivered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ids...)
}

type fixture struct {
	svc       *Service
	repo      *MemoryRepo
	leadRepo  *leads.MemoryRepo
	mailer    *recordingMailer
	deliverer *stubDeliverer
	lead      leads.Lead
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := NewTokenIssuer("test-secret", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	tokens.Now = func() time.Time { return testNow }

	leadRepo := leads.NewMemoryRepo()
	lead, _, err := leadRepo.CreateIfAbsent(context.Background(), leads.Lead{
		ID:        "lead-1",
		Email:     "ana@example.com",
		Name:      "Ana",
		Company:   "ACME",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	f := &fixture{
		repo:      NewMemoryRepo(),
		leadRepo:  leadRepo,
		mailer:    &recordingMailer{},
		deliverer: &stubDeliverer{},
		lead:      lead,
	}
	f.svc = &Service{
		Repo:        f.repo,
		Leads:       leadRepo,
		Tokens:      tokens,
		Mailer:      f.mailer,
		Reports:     f.deliverer,
		FrontendURL: "https://diag.example/",
		Now:         func() time.Time { return testNow },
	}
	return f
}

func (f *fixture) start(t *testing.T) Diagnosis {
	t.Helper()
	d, err := f.svc.Start(context.Background(), f.lead.ID, "express")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return d
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.svc.Wait(ctx); err != nil {
		t.Fatalf("wait for deliveries: %v", err)
	}
}
