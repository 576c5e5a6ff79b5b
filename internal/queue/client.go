package queue

import (
	"context"
	"strings"
	"time"
)

// Client publishes report jobs.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// NewReportJob builds the current-version job for a completed diagnosis.
func NewReportJob(diagnosisID, requestID string, at time.Time) Message {
	return Message{
		DiagnosisID: strings.TrimSpace(diagnosisID),
		RequestID:   requestID,
		EnqueuedAt:  at.UTC().Format(time.RFC3339),
		Version:     MessageVersion,
	}
}
