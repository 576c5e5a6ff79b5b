package leads

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo())
	svc.Now = func() time.Time { return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCaptureCreatesThenReuses(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	first, isNew, err := svc.Capture(ctx, CaptureInput{Email: " Ana@Example.com ", Name: "Ana", Company: "ACME"})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if !isNew {
		t.Fatalf("expected first capture to be new")
	}
	if first.Email != "ana@example.com" {
		t.Fatalf("expected normalized email, got %q", first.Email)
	}

	second, isNew, err := svc.Capture(ctx, CaptureInput{Email: "ana@example.COM"})
	if err != nil {
		t.Fatalf("capture again: %v", err)
	}
	if isNew {
		t.Fatalf("expected existing lead")
	}
	if second.ID != first.ID || second.Company != "ACME" {
		t.Fatalf("expected stored lead returned, got %+v", second)
	}
}

func TestCaptureValidation(t *testing.T) {
	svc := newTestService()
	cases := []struct {
		name  string
		in    CaptureInput
		field string
	}{
		{name: "missing_email", in: CaptureInput{}, field: "email"},
		{name: "bad_email", in: CaptureInput{Email: "not-an-email"}, field: "email"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Capture(context.Background(), tc.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) || len(verr.Fields) == 0 || verr.Fields[0].Field != tc.field {
				t.Fatalf("expected field error on %s, got %v", tc.field, err)
			}
		})
	}
}

func TestGetUnknownLead(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Get(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty id, got %v", err)
	}
}

func TestMemoryRepoListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		lead := Lead{ID: email, Email: email, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if _, _, err := repo.CreateIfAbsent(ctx, lead); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := repo.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Email != "c@x.com" || got[1].Email != "b@x.com" {
		t.Fatalf("unexpected order: %+v", got)
	}
	rest, err := repo.List(ctx, 2, 2)
	if err != nil || len(rest) != 1 || rest[0].Email != "a@x.com" {
		t.Fatalf("unexpected page: %+v %v", rest, err)
	}
}
