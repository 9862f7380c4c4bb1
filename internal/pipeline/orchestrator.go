// Package pipeline drives a resume through extraction and analysis and retries
// failed tasks under an explicit policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"resume-pipeline/internal/activitylog"
	"resume-pipeline/internal/analysis"
	"resume-pipeline/internal/artifacts"
	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/resumes"
	"resume-pipeline/internal/shared/storage/object"
	"resume-pipeline/internal/shared/telemetry"
)

// DefaultMaxFileBytes bounds the size of a stored file read for extraction.
const DefaultMaxFileBytes = 25 << 20

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Resumes      resumes.Repo
	Files        object.Store
	Artifacts    artifacts.Store
	Activity     activitylog.Recorder
	MaxFileBytes int64
}

// Orchestrator runs single attempts of the pipeline tasks. Each attempt moves
// the resume to processing, does its work and ends in completed or failed.
type Orchestrator struct {
	resumes      resumes.Repo
	files        object.Store
	artifacts    artifacts.Store
	analyzer     *analysis.Service
	activity     activitylog.Recorder
	maxFileBytes int64
	tracer       trace.Tracer
}

// NewOrchestrator wires an Orchestrator.
func NewOrchestrator(d Deps) *Orchestrator {
	maxBytes := d.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Orchestrator{
		resumes:      d.Resumes,
		files:        d.Files,
		artifacts:    d.Artifacts,
		analyzer:     analysis.NewService(d.Artifacts),
		activity:     d.Activity,
		maxFileBytes: maxBytes,
		tracer:       telemetry.Tracer("resume-pipeline/pipeline"),
	}
}

// Process extracts and analyzes a resume in one attempt.
func (o *Orchestrator) Process(ctx context.Context, resumeID string) Outcome {
	return o.attempt(ctx, TaskProcess, resumeID, func(ctx context.Context, res resumes.Resume) error {
		if err := o.parse(ctx, res); err != nil {
			return err
		}
		return o.analyze(ctx, res)
	})
}

// Parse extracts and stores the text of a resume in one attempt.
func (o *Orchestrator) Parse(ctx context.Context, resumeID string) Outcome {
	return o.attempt(ctx, TaskParse, resumeID, o.parse)
}

// Analyze scores previously stored content in one attempt.
func (o *Orchestrator) Analyze(ctx context.Context, resumeID string) Outcome {
	return o.attempt(ctx, TaskAnalyze, resumeID, o.analyze)
}

// Attempt dispatches one attempt of task.
func (o *Orchestrator) Attempt(ctx context.Context, task Task, resumeID string) Outcome {
	switch task {
	case TaskProcess:
		return o.Process(ctx, resumeID)
	case TaskParse:
		return o.Parse(ctx, resumeID)
	case TaskAnalyze:
		return o.Analyze(ctx, resumeID)
	default:
		return Fatal(fmt.Errorf("unknown task %q", task))
	}
}

func (o *Orchestrator) attempt(ctx context.Context, task Task, resumeID string, body func(context.Context, resumes.Resume) error) Outcome {
	ctx, span := o.tracer.Start(ctx, "pipeline."+string(task), trace.WithAttributes(
		attribute.String("resume.id", resumeID),
	))
	defer span.End()

	res, err := o.resumes.Get(ctx, resumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			telemetry.Error("pipeline.resume.not_found", map[string]any{"task": string(task), "resume_id": resumeID})
		}
		endSpan(span, err)
		return Classify(fmt.Errorf("load resume: %w", err))
	}
	span.SetAttributes(attribute.Int64("resume.owner_id", res.OwnerID), attribute.String("resume.format", string(res.Format)))

	if err := o.setStatus(ctx, res, resumes.StatusProcessing); err != nil {
		return o.fail(ctx, span, task, res, err)
	}
	if err := runGuarded(ctx, res, body); err != nil {
		return o.fail(ctx, span, task, res, err)
	}
	if err := o.setStatus(ctx, res, resumes.StatusCompleted); err != nil {
		return o.fail(ctx, span, task, res, err)
	}

	telemetry.Info("pipeline.task.completed", map[string]any{
		"task":      string(task),
		"resume_id": res.ID,
		"owner_id":  res.OwnerID,
	})
	return Ok()
}

// runGuarded turns a panic in body into a *PanicError so it is handled like
// any other step failure.
func runGuarded(ctx context.Context, res resumes.Resume, body func(context.Context, resumes.Resume) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &PanicError{Value: rec}
		}
	}()
	return body(ctx, res)
}

func (o *Orchestrator) parse(ctx context.Context, res resumes.Resume) error {
	var text string
	err := o.step(ctx, "extract", res.ID, func(ctx context.Context) error {
		data, err := object.ReadAll(ctx, o.files, res.FileKey, o.maxFileBytes)
		if err != nil {
			return fmt.Errorf("load file: %w", err)
		}
		text, err = extract.Extract(data, res.Format)
		return err
	})
	if err != nil {
		return err
	}

	err = o.step(ctx, "store_content", res.ID, func(ctx context.Context) error {
		return o.artifacts.PutContent(ctx, res.ID, artifacts.ContentArtifact{
			ResumeID: res.ID,
			UserID:   res.OwnerID,
			RawText:  text,
		})
	})
	if err != nil {
		return err
	}

	activitylog.Record(ctx, o.activity, activitylog.ForResume(res.OwnerID, res.ID, activitylog.ActionParse, "Resume parsed successfully."))
	return nil
}

func (o *Orchestrator) analyze(ctx context.Context, res resumes.Resume) error {
	var result analysis.Result
	err := o.step(ctx, "analyze", res.ID, func(ctx context.Context) error {
		var err error
		result, _, err = o.analyzer.Analyze(ctx, res.ID)
		return err
	})
	if err != nil {
		return err
	}

	err = o.step(ctx, "store_analysis", res.ID, func(ctx context.Context) error {
		return o.artifacts.PutAnalysis(ctx, res.ID, result.Artifact(res.ID, res.OwnerID))
	})
	if err != nil {
		return err
	}

	activitylog.Record(ctx, o.activity, activitylog.ForResume(res.OwnerID, res.ID, activitylog.ActionAnalyze, "Resume analyzed successfully."))
	return nil
}

func (o *Orchestrator) step(ctx context.Context, name, resumeID string, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "pipeline.step."+name, trace.WithAttributes(
		attribute.String("resume.id", resumeID),
	))
	defer span.End()

	err := fn(ctx)
	endSpan(span, err)
	return err
}

func (o *Orchestrator) setStatus(ctx context.Context, res resumes.Resume, status resumes.Status) error {
	if err := o.resumes.UpdateStatus(ctx, res.ID, status); err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	return nil
}

// fail marks the resume failed, records a diagnostic and classifies err.
// Neither side effect can change the outcome.
func (o *Orchestrator) fail(ctx context.Context, span trace.Span, task Task, res resumes.Resume, err error) Outcome {
	endSpan(span, err)
	out := Classify(err)
	kind := FailureKind(err)

	if updateErr := o.resumes.UpdateStatus(ctx, res.ID, resumes.StatusFailed); updateErr != nil {
		telemetry.Error("pipeline.status.update_failed", map[string]any{
			"resume_id": res.ID,
			"status":    string(resumes.StatusFailed),
			"error":     updateErr,
		})
	}

	telemetry.Error("pipeline.attempt.failed", map[string]any{
		"task":      string(task),
		"resume_id": res.ID,
		"owner_id":  res.OwnerID,
		"kind":      kind,
		"outcome":   out.Kind.String(),
		"error":     err,
	})

	msg := fmt.Sprintf("Failed to %s resume [%s]: %s", task, kind, sanitizeError(err))
	activitylog.Record(ctx, o.activity, activitylog.ForResume(res.OwnerID, res.ID, activitylog.ActionError, msg))
	return out
}

func endSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
