package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resume-pipeline/internal/analysis"
	"resume-pipeline/internal/artifacts"
	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/resumes"
)

// OutcomeKind tells the runner what to do after an attempt.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Outcome is the typed result of one task attempt.
type Outcome struct {
	Kind OutcomeKind
	Err  error
}

// Ok reports a successful attempt.
func Ok() Outcome { return Outcome{Kind: OutcomeOK} }

// Retryable reports a failure that may succeed on a later attempt.
func Retryable(err error) Outcome { return Outcome{Kind: OutcomeRetryable, Err: err} }

// Fatal reports a failure no retry can fix.
func Fatal(err error) Outcome { return Outcome{Kind: OutcomeFatal, Err: err} }

// Failure kinds recorded in diagnostics and metrics.
const (
	KindUnsupportedFormat = "unsupported_format"
	KindExtraction        = "extraction"
	KindMissingContent    = "missing_content"
	KindTransientStore    = "transient_store"
	KindResumeNotFound    = "resume_not_found"
	KindInvalidArtifact   = "invalid_artifact"
	KindInvalidStatus     = "invalid_status"
	KindPanic             = "panic"
	KindCanceled          = "canceled"
	KindUnknown           = "unknown"
)

// Classify maps an error onto an outcome. Unrecognized errors are retryable.
func Classify(err error) Outcome {
	if err == nil {
		return Ok()
	}
	switch FailureKind(err) {
	case KindUnsupportedFormat, KindMissingContent, KindResumeNotFound, KindInvalidArtifact, KindInvalidStatus:
		return Fatal(err)
	default:
		return Retryable(err)
	}
}

// FailureKind names the category of err.
func FailureKind(err error) string {
	var unsupported *extract.UnsupportedFormatError
	var extraction *extract.ExtractionError
	var missing *analysis.MissingContentError
	var transient *artifacts.TransientStoreError
	var panicked *PanicError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &unsupported):
		return KindUnsupportedFormat
	case errors.As(err, &missing):
		return KindMissingContent
	case errors.As(err, &extraction):
		return KindExtraction
	case errors.As(err, &transient):
		return KindTransientStore
	case errors.As(err, &panicked):
		return KindPanic
	case errors.Is(err, resumes.ErrNotFound):
		return KindResumeNotFound
	case errors.Is(err, resumes.ErrInvalidTransition):
		return KindInvalidStatus
	case errors.Is(err, artifacts.ErrInvalidOwner),
		errors.Is(err, artifacts.ErrIdentifierMismatch),
		errors.Is(err, artifacts.ErrMissingID),
		errors.Is(err, artifacts.ErrInvalidUpdate):
		return KindInvalidArtifact
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindUnknown
	}
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// PermanentFailure is returned once a task stops retrying, either because an
// attempt was fatal or because no attempts were left.
type PermanentFailure struct {
	Task     Task
	ResumeID string
	Attempts int
	Kind     string
	Err      error
}

func (e *PermanentFailure) Error() string {
	return fmt.Sprintf("%s task for resume %s failed after %d attempt(s): %v", e.Task, e.ResumeID, e.Attempts, e.Err)
}

func (e *PermanentFailure) Unwrap() error { return e.Err }

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
