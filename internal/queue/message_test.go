package queue

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		DiagnosisID: "diagnosis-123",
		RequestID:   "request-456",
		EnqueuedAt:  "2026-01-30T22:00:00Z",
		Version:     MessageVersion,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if diff := cmp.Diff(msg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeMessageRequiresDiagnosisID(t *testing.T) {
	_, err := DecodeMessage([]byte(`{"diagnosisId":"  ","requestId":"r-1","version":1}`))
	if !errors.Is(err, ErrMissingDiagnosisID) {
		t.Fatalf("expected ErrMissingDiagnosisID, got %v", err)
	}
	if _, err := DecodeMessage([]byte(`{`)); err == nil || errors.Is(err, ErrMissingDiagnosisID) {
		t.Fatalf("expected JSON error, got %v", err)
	}
}

func TestNewReportJob(t *testing.T) {
	at := time.Date(2026, time.March, 2, 7, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	got := NewReportJob(" diag-1 ", "req-1", at)
	want := Message{
		DiagnosisID: "diag-1",
		RequestID:   "req-1",
		EnqueuedAt:  "2026-03-02T10:00:00Z",
		Version:     MessageVersion,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("job mismatch (-want +got):\n%s", diff)
	}
}
