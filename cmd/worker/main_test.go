package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"tdm-diagnostic/internal/bootstrap"
	"tdm-diagnostic/internal/diagnoses"
	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/workerproc"
)

type fakeSQS struct {
	mu        sync.Mutex
	batches   [][]sqstypes.Message
	onDrained func()
	deleted   []string
	deleteErr error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		if f.onDrained != nil {
			f.onDrained()
		}
		return nil, ctx.Err()
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return &sqs.ReceiveMessageOutput{Messages: batch}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeDeliverer struct {
	mu   sync.Mutex
	errs map[string]error
	ids  []string
}

func (f *fakeDeliverer) Deliver(_ context.Context, diagnosisID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, diagnosisID)
	return f.errs[diagnosisID]
}

func newPoller(t *testing.T, client *fakeSQS, d *fakeDeliverer) *poller {
	t.Helper()
	proc, err := workerproc.New(&bootstrap.App{ReportDeliverer: d})
	if err != nil {
		t.Fatalf("processor: %v", err)
	}
	return &poller{client: client, proc: proc, s: settings{QueueURL: "queue", Concurrency: 2, Drain: time.Second}}
}

func record(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String("m-" + id),
		ReceiptHandle: aws.String("r-" + id),
		Body:          aws.String(body),
		Attributes:    map[string]string{receiveCountAttr: "1"},
	}
}

func TestHandleAcksByOutcome(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		err     error
		deleted bool
	}{
		{name: "delivered", body: `{"diagnosisId":"diag-1"}`, deleted: true},
		{name: "transient", body: `{"diagnosisId":"diag-1"}`, err: errors.New("mail provider down")},
		{name: "not_found", body: `{"diagnosisId":"diag-1"}`, err: diagnoses.ErrNotFound, deleted: true},
		{name: "not_completed", body: `{"diagnosisId":"diag-1"}`, err: diagnoses.ErrNotCompleted, deleted: true},
		{name: "invalid_json", body: "{bad-json", deleted: true},
		{name: "missing_id", body: `{"requestId":"req-4"}`, deleted: true},
		{name: "empty", body: "  ", deleted: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeSQS{}
			d := &fakeDeliverer{errs: map[string]error{"diag-1": tc.err}}

			newPoller(t, client, d).handle(context.Background(), record(tc.name, tc.body))

			if got := len(client.deleted) == 1; got != tc.deleted {
				t.Fatalf("expected deleted=%v, got %v", tc.deleted, client.deleted)
			}
		})
	}
}

func TestHandleAcksAfterShutdownSignal(t *testing.T) {
	client := &fakeSQS{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	newPoller(t, client, &fakeDeliverer{}).handle(ctx, record("1", `{"diagnosisId":"diag-1"}`))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete despite cancelled context, got %v", client.deleted)
	}
}

func TestHandleSurvivesDeleteFailure(t *testing.T) {
	client := &fakeSQS{deleteErr: errors.New("throttled")}
	d := &fakeDeliverer{}

	newPoller(t, client, d).handle(context.Background(), record("1", `{"diagnosisId":"diag-1"}`))

	if len(d.ids) != 1 {
		t.Fatalf("expected one delivery, got %v", d.ids)
	}
}

func TestRunProcessesBatchesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := &fakeSQS{
		batches: [][]sqstypes.Message{
			{record("1", `{"diagnosisId":"diag-1"}`), record("2", `{"diagnosisId":"diag-2"}`)},
			{record("3", `{"diagnosisId":"diag-3"}`)},
		},
		onDrained: cancel,
	}
	d := &fakeDeliverer{}

	if err := newPoller(t, client, d).run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(d.ids) != 3 || len(client.deleted) != 3 {
		t.Fatalf("expected three deliveries and deletes, got %v %v", d.ids, client.deleted)
	}
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "-3")

	s, err := loadSettings(config.Config{SQSQueueURL: " https://sqs.example/q "})
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if s.QueueURL != "https://sqs.example/q" || s.Region != "us-east-1" {
		t.Fatalf("unexpected settings: %+v", s)
	}
	if s.Concurrency != 8 || s.Drain != 30*time.Second || s.Visibility != 300 {
		t.Fatalf("unexpected tuning: %+v", s)
	}
	if _, err := loadSettings(config.Config{}); err == nil {
		t.Fatalf("expected queue url error")
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{receiveCountAttr: "3"}}); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}
