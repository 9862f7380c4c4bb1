package worker

import (
	"context"
	"errors"
	"sync"

	"resume-pipeline/internal/pipeline"
	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
)

// Pool runs tasks from an in-process queue with a fixed number of goroutines.
type Pool struct {
	Messages    <-chan queue.Message
	Tasks       TaskRunner
	Metrics     *metrics.Metrics
	Concurrency int
}

// Run consumes until the channel closes or ctx is canceled. Tasks already
// taken off the channel run to completion before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	if p.Messages == nil || p.Tasks == nil {
		return errors.New("worker pool requires a message channel and task runner")
	}
	n := p.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}

	telemetry.Info("worker.pool.started", map[string]any{"concurrency": n})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-p.Messages:
					if !ok {
						return
					}
					p.handle(context.WithoutCancel(ctx), msg)
				}
			}
		}()
	}
	wg.Wait()
	telemetry.Info("worker.pool.stopped", nil)
	return nil
}

func (p *Pool) handle(ctx context.Context, msg queue.Message) {
	p.Metrics.WorkerMessage("received")
	fields := map[string]any{
		"task":       msg.Task,
		"resume_id":  msg.ResumeID,
		"request_id": msg.RequestID,
	}
	if err := validate(msg, MessageMeta{}); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.message.invalid", fields)
		p.Metrics.WorkerMessage("deleted_unrecoverable")
		return
	}

	task, _ := pipeline.ParseTask(msg.Task)
	if err := p.Tasks.Run(ctx, task, msg.ResumeID); err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.message.failed", fields)
		p.Metrics.WorkerMessage("failed")
		return
	}
	telemetry.Info("worker.message.completed", fields)
	p.Metrics.WorkerMessage("completed")
}
