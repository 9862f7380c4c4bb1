package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"resume-pipeline/internal/queue"
	"resume-pipeline/internal/shared/telemetry"
)

// ErrNoQueue is returned by enqueue operations when no queue is configured.
var ErrNoQueue = errors.New("task queue not configured")

// Dispatcher is the entry point for running pipeline tasks, either inline or
// through the task queue.
type Dispatcher struct {
	Orchestrator *Orchestrator
	Runner       *Runner
	Queue        queue.Client
	// Limiter throttles enqueues. Nil means unlimited.
	Limiter *rate.Limiter
	// Policies overrides the default policy per task.
	Policies map[Task]Policy
}

// ProcessResume runs the process task synchronously with retries.
func (d *Dispatcher) ProcessResume(ctx context.Context, resumeID string) error {
	return d.Run(ctx, TaskProcess, resumeID)
}

// Run executes task synchronously with retries. The returned error is a
// *PermanentFailure when the task did not complete.
func (d *Dispatcher) Run(ctx context.Context, task Task, resumeID string) error {
	if _, ok := ParseTask(string(task)); !ok {
		return fmt.Errorf("unknown task %q", task)
	}
	return d.Runner.Run(ctx, task, resumeID, d.policy(task), func(ctx context.Context, attempt int) Outcome {
		telemetry.Debug("pipeline.task.attempt", map[string]any{
			"task":      string(task),
			"resume_id": resumeID,
			"attempt":   attempt,
		})
		return d.Orchestrator.Attempt(ctx, task, resumeID)
	})
}

// EnqueueProcess schedules the process task.
func (d *Dispatcher) EnqueueProcess(ctx context.Context, resumeID, requestID string) error {
	return d.Enqueue(ctx, TaskProcess, resumeID, requestID)
}

// Enqueue schedules task on the queue.
func (d *Dispatcher) Enqueue(ctx context.Context, task Task, resumeID, requestID string) error {
	if d.Queue == nil {
		return ErrNoQueue
	}
	if _, ok := ParseTask(string(task)); !ok {
		return fmt.Errorf("unknown task %q", task)
	}
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("enqueue rate limit: %w", err)
		}
	}
	msg := queue.NewMessage(string(task), resumeID, requestID)
	if err := d.Queue.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %s: %w", task, err)
	}
	telemetry.Info("pipeline.task.enqueued", map[string]any{
		"task":       string(task),
		"resume_id":  resumeID,
		"request_id": requestID,
	})
	return nil
}

// Tune sets the base delay and jitter of every task policy. A non-positive
// baseDelay keeps the current delay.
func (d *Dispatcher) Tune(baseDelay time.Duration, jitter bool) *Dispatcher {
	if d.Policies == nil {
		d.Policies = make(map[Task]Policy)
	}
	for _, t := range []Task{TaskProcess, TaskParse, TaskAnalyze} {
		p := d.policy(t)
		if baseDelay > 0 {
			p.BaseDelay = baseDelay
		}
		p.Jitter = jitter
		d.Policies[t] = p
	}
	return d
}

func (d *Dispatcher) policy(task Task) Policy {
	if p, ok := d.Policies[task]; ok {
		return p
	}
	return PolicyFor(task)
}
