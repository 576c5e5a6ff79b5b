package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"tdm-diagnostic/internal/bootstrap"
	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/telemetry"
	"tdm-diagnostic/internal/workerproc"
)

var loadProcessor = sync.OnceValues(func() (*workerproc.Processor, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, err
	}
	return workerproc.New(app)
})

// handle reports retryable records as batch item failures. The event source
// mapping must enable ReportBatchItemFailures.
func handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	proc, err := loadProcessor()
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		return retryAll(event), err
	}
	return processBatch(ctx, proc, event), nil
}

func processBatch(ctx context.Context, proc *workerproc.Processor, event events.SQSEvent) events.SQSEventResponse {
	var resp events.SQSEventResponse
	for _, rec := range event.Records {
		res := proc.Process(ctx, rec.Body)
		// lambda deletes every record not listed as a failure
		workerproc.Record(res, true, map[string]any{
			"sqs_message_id": rec.MessageId,
			"receive_count":  rec.Attributes["ApproximateReceiveCount"],
		})
		if !res.Outcome.Ack() {
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp
}

func retryAll(event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, len(event.Records))
	for i, rec := range event.Records {
		failures[i] = events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handle)
}
