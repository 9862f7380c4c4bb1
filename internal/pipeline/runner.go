package pipeline

import (
	"context"
	"fmt"
	"time"

	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/telemetry"
)

// AttemptFunc runs one attempt of a task. attempt starts at 1.
type AttemptFunc func(ctx context.Context, attempt int) Outcome

// Runner executes a task under a retry policy.
type Runner struct {
	Metrics *metrics.Metrics
	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Run calls fn until it succeeds, fails fatally, or the policy's attempts are used up.
// Panics inside fn are recovered and treated as retryable.
func (r *Runner) Run(ctx context.Context, task Task, resumeID string, p Policy, fn AttemptFunc) error {
	r.metrics().TaskStarted(string(task))
	maxAttempts := p.attempts()

	var last Outcome
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		started := time.Now()
		last = r.attempt(ctx, attempt, fn)
		r.metrics().TaskAttempt(string(task), last.Kind.String(), time.Since(started))

		switch last.Kind {
		case OutcomeOK:
			r.metrics().TaskCompleted(string(task))
			return nil
		case OutcomeFatal:
			return r.fail(task, resumeID, attempt, last.Err)
		}

		if attempt == maxAttempts {
			break
		}
		delay := p.Backoff(attempt)
		telemetry.Warn("pipeline.task.retry", map[string]any{
			"task":      string(task),
			"resume_id": resumeID,
			"attempt":   attempt,
			"delay_ms":  delay.Milliseconds(),
			"kind":      FailureKind(last.Err),
			"error":     last.Err,
		})
		if err := r.sleep(ctx, delay); err != nil {
			return r.fail(task, resumeID, attempt, fmt.Errorf("retry wait: %w", err))
		}
	}
	return r.fail(task, resumeID, maxAttempts, last.Err)
}

func (r *Runner) attempt(ctx context.Context, n int, fn AttemptFunc) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Retryable(&PanicError{Value: rec})
		}
	}()
	out = fn(ctx, n)
	if out.Kind != OutcomeOK && out.Err == nil {
		out.Err = fmt.Errorf("attempt %d failed without an error", n)
	}
	return out
}

func (r *Runner) fail(task Task, resumeID string, attempts int, err error) error {
	kind := FailureKind(err)
	r.metrics().TaskFailed(string(task), kind)
	telemetry.Error("pipeline.task.failed", map[string]any{
		"task":      string(task),
		"resume_id": resumeID,
		"attempts":  attempts,
		"kind":      kind,
		"error":     err,
	})
	return &PermanentFailure{Task: task, ResumeID: resumeID, Attempts: attempts, Kind: kind, Err: err}
}

func (r *Runner) metrics() *metrics.Metrics {
	if r == nil {
		return nil
	}
	return r.Metrics
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r != nil && r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
