// Package worker consumes pipeline tasks from a queue and runs each to
// completion on one goroutine.
package worker

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"resume-pipeline/internal/pipeline"
	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
)

const (
	defaultVisibilitySeconds = 1200
	defaultConcurrency       = 4
	defaultShutdownTimeout   = 30 * time.Second
	receiveCountAttribute    = "ApproximateReceiveCount"
)

// TaskRunner runs one pipeline task to completion, retries included.
// *pipeline.Dispatcher satisfies it.
type TaskRunner interface {
	Run(ctx context.Context, task pipeline.Task, resumeID string) error
}

// SQSConsumer long-polls an SQS queue and runs the received tasks.
type SQSConsumer struct {
	API      queue.SQSAPI
	QueueURL string
	Tasks    TaskRunner
	Metrics  *metrics.Metrics

	Concurrency       int
	VisibilitySeconds int32
	WaitSeconds       int32
	MaxMessages       int32
	ShutdownTimeout   time.Duration
}

// Run polls until ctx is canceled, then waits up to ShutdownTimeout for
// in-flight tasks. Tasks are not canceled by ctx.
func (w *SQSConsumer) Run(ctx context.Context) error {
	if w.API == nil || strings.TrimSpace(w.QueueURL) == "" {
		return errors.New("sqs consumer requires a client and queue url")
	}

	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	visibility := w.VisibilitySeconds
	if visibility <= 0 {
		visibility = defaultVisibilitySeconds
	}
	wait := w.WaitSeconds
	if wait <= 0 || wait > 20 {
		wait = 20
	}
	maxMessages := w.MaxMessages
	if maxMessages <= 0 || maxMessages > 10 {
		maxMessages = 10
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue":       w.QueueURL,
		"concurrency": concurrency,
		"visibility":  visibility,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := w.API.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(w.QueueURL),
			MaxNumberOfMessages: maxMessages,
			WaitTimeSeconds:     wait,
			VisibilityTimeout:   visibility,
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName(receiveCountAttribute)},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.receive_failed", map[string]any{"error": err.Error()})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			w.Metrics.WorkerMessage("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				w.handle(context.WithoutCancel(ctx), m)
			}(msg)
		}
	}

	w.drain(&wg)
	return nil
}

func (w *SQSConsumer) drain(wg *sync.WaitGroup) {
	timeout := w.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	telemetry.Info("worker.shutdown", map[string]any{"timeout": timeout.String()})

	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(timeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": timeout.String()})
	}
}

// handle runs one message. Successful, permanently failed and malformed
// messages are deleted; anything else stays for redelivery.
func (w *SQSConsumer) handle(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.message.invalid", fields)
		if w.delete(ctx, msg, decoded) {
			w.Metrics.WorkerMessage("deleted_unrecoverable")
		}
		return
	}

	telemetry.Info("worker.message.received", baseFields(msg, decoded))

	task, _ := pipeline.ParseTask(decoded.Task)
	if err := w.Tasks.Run(ctx, task, decoded.ResumeID); err != nil {
		fields := baseFields(msg, decoded)
		fields["error"] = err.Error()

		var pf *pipeline.PermanentFailure
		if errors.As(err, &pf) {
			fields["kind"] = pf.Kind
			fields["attempts"] = pf.Attempts
			telemetry.Error("worker.message.failed", fields)
			w.Metrics.WorkerMessage("failed")
			w.delete(ctx, msg, decoded)
			return
		}
		telemetry.Error("worker.message.retry_later", fields)
		w.Metrics.WorkerMessage("released")
		return
	}

	if w.delete(ctx, msg, decoded) {
		telemetry.Info("worker.message.completed", baseFields(msg, decoded))
		w.Metrics.WorkerMessage("completed")
	}
}

func (w *SQSConsumer) delete(ctx context.Context, msg sqstypes.Message, decoded queue.Message) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, decoded)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.message.delete_failed", fields)
		return false
	}
	if _, err := w.API.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(w.QueueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, decoded)
		fields["error"] = err.Error()
		telemetry.Error("worker.message.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, decoded queue.Message) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if decoded.ResumeID != "" {
		fields["resume_id"] = decoded.ResumeID
	}
	if decoded.Task != "" {
		fields["task"] = decoded.Task
	}
	if strings.TrimSpace(decoded.RequestID) != "" {
		fields["request_id"] = decoded.RequestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	raw := msg.Attributes[receiveCountAttribute]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
