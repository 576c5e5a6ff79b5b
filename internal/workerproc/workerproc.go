// Package workerproc turns queued report jobs into deliveries and tells the
// queue consumer whether to acknowledge each record.
package workerproc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tdm-diagnostic/internal/bootstrap"
	"tdm-diagnostic/internal/diagnoses"
	"tdm-diagnostic/internal/queue"
	"tdm-diagnostic/internal/shared/metrics"
	"tdm-diagnostic/internal/shared/telemetry"
	"tdm-diagnostic/internal/shared/util"
)

// Outcome is the consumer action for a processed record.
type Outcome int

const (
	// Delivered records are acknowledged.
	Delivered Outcome = iota
	// Retry records stay on the queue for redelivery.
	Retry
	// Discard records are acknowledged without a delivery.
	Discard
)

func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Retry:
		return "retry"
	case Discard:
		return "discard"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Ack reports whether the record should be removed from the queue.
func (o Outcome) Ack() bool { return o != Retry }

var (
	// ErrEmptyBody is reported for blank payloads.
	ErrEmptyBody = errors.New("empty message body")
	// ErrNoDeliverer is reported when the app has no report deliverer.
	ErrNoDeliverer = errors.New("report service not configured")
)

// Result describes one processed record.
type Result struct {
	Outcome Outcome
	Job     queue.Message
	BodyLen int
	BodySHA string
	Err     error
}

// Event is the telemetry event name for r.
func (r Result) Event() string {
	switch {
	case r.Outcome == Delivered:
		return "worker.report.completed"
	case r.Outcome == Retry:
		return "worker.report.failed"
	case errors.Is(r.Err, ErrEmptyBody):
		return "worker.report.empty_body"
	case errors.Is(r.Err, queue.ErrMissingDiagnosisID):
		return "worker.report.missing_id"
	case r.Job.DiagnosisID == "":
		return "worker.report.decode_failed"
	}
	return "worker.report.unrecoverable"
}

// Fields returns log fields for r merged over extra.
func (r Result) Fields(extra map[string]any) map[string]any {
	fields := make(map[string]any, len(extra)+6)
	for k, v := range extra {
		fields[k] = v
	}
	fields["outcome"] = r.Outcome.String()
	fields["diagnosis_id"] = r.Job.DiagnosisID
	if r.Job.RequestID != "" {
		fields["request_id"] = r.Job.RequestID
	}
	if r.Job.DiagnosisID == "" {
		fields["body_len"] = r.BodyLen
		if r.BodySHA != "" {
			fields["body_sha256"] = r.BodySHA
		}
	}
	if r.Err != nil {
		fields["error"] = r.Err.Error()
	}
	return fields
}

// Record logs r and counts it. acked is false when the consumer failed to
// remove an acknowledged record, so the job will come back.
func Record(r Result, acked bool, extra map[string]any) {
	fields := r.Fields(extra)
	switch {
	case r.Outcome.Ack() && !acked:
		telemetry.Warn("worker.report.ack_failed", fields)
		return
	case r.Outcome == Delivered:
		telemetry.Info(r.Event(), fields)
		metrics.IncReportJobCompleted()
	case r.Outcome == Retry:
		telemetry.Error(r.Event(), fields)
		metrics.IncReportJobFailed()
	default:
		telemetry.Error(r.Event(), fields)
		metrics.IncReportJobDeletedUnrecoverable()
	}
}

// Processor delivers the reports named by queue records.
type Processor struct {
	deliverer bootstrap.ReportDeliverer
}

// New returns a processor bound to the app's report deliverer.
func New(app *bootstrap.App) (*Processor, error) {
	if app == nil || app.ReportDeliverer == nil {
		return nil, ErrNoDeliverer
	}
	return &Processor{deliverer: app.ReportDeliverer}, nil
}

// Process decodes body and delivers the report it names. Payloads that can
// never be delivered come back as Discard.
func (p *Processor) Process(ctx context.Context, body string) Result {
	metrics.IncReportJobReceived()
	res := Result{BodyLen: len(body)}
	if body != "" {
		res.BodySHA = util.Fingerprint([]byte(body))
	}
	if strings.TrimSpace(body) == "" {
		res.Outcome, res.Err = Discard, ErrEmptyBody
		return res
	}

	job, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		// a missing id still carries a request id worth logging
		if errors.Is(err, queue.ErrMissingDiagnosisID) {
			res.Job.RequestID = job.RequestID
		}
		res.Outcome, res.Err = Discard, err
		return res
	}
	res.Job = job

	err = p.deliverer.Deliver(diagnoses.WithRequestID(ctx, job.RequestID), job.DiagnosisID)
	switch {
	case err == nil:
		res.Outcome = Delivered
	case permanent(err):
		res.Outcome, res.Err = Discard, err
	default:
		res.Outcome, res.Err = Retry, err
	}
	return res
}

func permanent(err error) bool {
	return errors.Is(err, diagnoses.ErrNotFound) ||
		errors.Is(err, diagnoses.ErrNotCompleted) ||
		errors.Is(err, diagnoses.ErrLeadNotFound)
}
