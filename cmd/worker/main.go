package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"golang.org/x/sync/errgroup"

	"tdm-diagnostic/internal/bootstrap"
	"tdm-diagnostic/internal/shared/config"
	"tdm-diagnostic/internal/shared/telemetry"
	"tdm-diagnostic/internal/workerproc"
)

const (
	receiveCountAttr = "ApproximateReceiveCount"
	maxBatch         = 10
	longPollSeconds  = 20
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// settings tune the long-poll consumer.
type settings struct {
	QueueURL    string
	Region      string
	Visibility  int32
	Concurrency int
	Drain       time.Duration
}

func loadSettings(cfg config.Config) (settings, error) {
	s := settings{
		QueueURL:    strings.TrimSpace(cfg.SQSQueueURL),
		Region:      strings.TrimSpace(cfg.AWSRegion),
		Visibility:  int32(positiveEnv("SQS_VISIBILITY_TIMEOUT_SECONDS", 300)),
		Concurrency: positiveEnv("WORKER_CONCURRENCY", 4),
		Drain:       time.Duration(positiveEnv("SHUTDOWN_TIMEOUT_SECONDS", 30)) * time.Second,
	}
	if s.QueueURL == "" {
		return s, errors.New("SQS_QUEUE_URL is required")
	}
	if s.Region == "" {
		s.Region = "us-east-1"
	}
	return s, nil
}

func main() {
	cfg := config.Load()
	s, err := loadSettings(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(s.Region))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	proc, err := workerproc.New(app)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	p := &poller{client: sqs.NewFromConfig(awsCfg), proc: proc, s: s}
	if err := p.run(ctx); err != nil {
		telemetry.Warn("worker.stopped", map[string]any{"error": err.Error()})
	}
}

type poller struct {
	client sqsAPI
	proc   *workerproc.Processor
	s      settings
}

// run long-polls until ctx is cancelled, then waits up to Drain for
// in-flight jobs.
func (p *poller) run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(max(1, p.s.Concurrency))

	telemetry.Info("worker.started", map[string]any{
		"queue_url":          p.s.QueueURL,
		"concurrency":        p.s.Concurrency,
		"visibility_seconds": p.s.Visibility,
	})

	for ctx.Err() == nil {
		msgs, err := p.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}
		for _, msg := range msgs {
			g.Go(func() error {
				p.handle(ctx, msg)
				return nil
			})
		}
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(p.s.Drain):
		return errors.New("drain timeout reached with jobs in flight")
	}
}

func (p *poller) receive(ctx context.Context) ([]sqstypes.Message, error) {
	resp, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:                    aws.String(p.s.QueueURL),
		MaxNumberOfMessages:         maxBatch,
		WaitTimeSeconds:             longPollSeconds,
		VisibilityTimeout:           p.s.Visibility,
		MessageSystemAttributeNames: []sqstypes.MessageSystemAttributeName{sqstypes.MessageSystemAttributeNameApproximateReceiveCount},
	})
	if err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// handle processes one record and deletes it unless it should be retried.
func (p *poller) handle(ctx context.Context, msg sqstypes.Message) {
	res := p.proc.Process(ctx, aws.ToString(msg.Body))
	acked := false
	if res.Outcome.Ack() {
		acked = p.ack(context.WithoutCancel(ctx), msg) == nil
	}
	workerproc.Record(res, acked, messageFields(msg))
}

func (p *poller) ack(ctx context.Context, msg sqstypes.Message) error {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		return errors.New("missing receipt handle")
	}
	_, err := p.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.s.QueueURL),
		ReceiptHandle: aws.String(receipt),
	})
	return err
}

func messageFields(msg sqstypes.Message) map[string]any {
	return map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func receiveCount(msg sqstypes.Message) int {
	n, err := strconv.Atoi(msg.Attributes[receiveCountAttr])
	if err != nil {
		return 0
	}
	return n
}

func positiveEnv(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
