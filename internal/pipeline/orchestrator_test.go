package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-pipeline/internal/activitylog"
	"resume-pipeline/internal/analysis"
	"resume-pipeline/internal/artifacts"
	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/resumes"
)

func TestProcessResumeCompletes(t *testing.T) {
	f := newFixture(t, nil)
	f.addResume(t, "r-1", 11, extract.DOCX, buildDOCX(t, "Jane Doe", "Summary", "Experience", "- Built things", "Skills"))

	require.NoError(t, f.dispatcher.ProcessResume(context.Background(), "r-1"))
	assert.Equal(t, resumes.StatusCompleted, f.status(t, "r-1"))
	assert.Empty(t, f.sleeps)

	content, found, err := f.store.GetContent(context.Background(), "r-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, content.RawText, "Jane Doe")
	assert.Equal(t, int64(11), content.UserID)

	stored, found, err := f.store.GetAnalysis(context.Background(), "r-1")
	require.NoError(t, err)
	require.True(t, found)
	want := analysis.Analyze(content.RawText)
	assert.Equal(t, want.OverallScore, stored.OverallScore)
	assert.Equal(t, "r-1", stored.ResumeID)
	assert.NotNil(t, stored.Strengths)
	assert.NotNil(t, stored.Weaknesses)
	assert.NotNil(t, stored.ImprovementSuggestions)

	assert.Len(t, f.activity.Filter(activitylog.ActionParse), 1)
	assert.Len(t, f.activity.Filter(activitylog.ActionAnalyze), 1)
	assert.Empty(t, f.activity.Filter(activitylog.ActionError))
}

func TestExtractionFailureRetriesThenFails(t *testing.T) {
	f := newFixture(t, nil)
	f.addResume(t, "r-bad", 5, extract.PDF, []byte("definitely not a pdf"))

	err := f.dispatcher.ProcessResume(context.Background(), "r-bad")
	require.Error(t, err)

	var perm *PermanentFailure
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, 3, perm.Attempts)
	assert.Equal(t, KindExtraction, perm.Kind)
	var extraction *extract.ExtractionError
	assert.True(t, errors.As(err, &extraction))

	require.Len(t, f.sleeps, 2)
	assert.Equal(t, 5*time.Second, f.sleeps[0])
	assert.Equal(t, 10*time.Second, f.sleeps[1])
	assert.Greater(t, f.sleeps[1], f.sleeps[0])

	assert.Equal(t, resumes.StatusFailed, f.status(t, "r-bad"))
	errs := f.activity.Filter(activitylog.ActionError)
	require.Len(t, errs, 3)
	for _, e := range errs {
		assert.Equal(t, "resume", e.ObjectType)
		assert.Equal(t, "r-bad", e.ObjectID)
		assert.Contains(t, e.Message, "[extraction]")
	}

	_, found, err := f.store.GetContent(context.Background(), "r-bad")
	require.NoError(t, err)
	assert.False(t, found)

	expected := `
# HELP pipeline_task_attempts_total Total pipeline task attempts by outcome.
# TYPE pipeline_task_attempts_total counter
pipeline_task_attempts_total{outcome="retryable",task="process"} 3
`
	require.NoError(t, testutil.GatherAndCompare(f.registry, strings.NewReader(expected), "pipeline_task_attempts_total"))
}

func TestPanicInStepMarksResumeFailed(t *testing.T) {
	f := newFixture(t, panickyStore{Store: artifacts.NewMemoryStore()})
	f.addResume(t, "r-panic", 8, extract.DOCX, buildDOCX(t, "Summary", "Experience", "Skills"))

	err := f.dispatcher.ProcessResume(context.Background(), "r-panic")
	var perm *PermanentFailure
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, 3, perm.Attempts)
	assert.Equal(t, KindPanic, perm.Kind)

	assert.Equal(t, resumes.StatusFailed, f.status(t, "r-panic"))
	errs := f.activity.Filter(activitylog.ActionError)
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0].Message, "[panic]")
	assert.Contains(t, errs[0].Message, "driver blew up")
}

func TestUnsupportedFormatIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.addResume(t, "r-txt", 5, extract.Format("txt"), []byte("plain text resume"))

	err := f.dispatcher.ProcessResume(context.Background(), "r-txt")
	var perm *PermanentFailure
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, 1, perm.Attempts)
	assert.Equal(t, KindUnsupportedFormat, perm.Kind)

	var unsupported *extract.UnsupportedFormatError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "txt", unsupported.Format)

	assert.Empty(t, f.sleeps)
	assert.Equal(t, resumes.StatusFailed, f.status(t, "r-txt"))
	assert.Len(t, f.activity.Filter(activitylog.ActionError), 1)
}

func TestAnalyzeBeforeParseIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.addResume(t, "r-2", 5, extract.DOCX, buildDOCX(t, "hello"))

	err := f.dispatcher.Run(context.Background(), TaskAnalyze, "r-2")
	var missing *analysis.MissingContentError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "r-2", missing.ResumeID)
	assert.Empty(t, f.sleeps)
	assert.Equal(t, resumes.StatusFailed, f.status(t, "r-2"))

	_, found, err := f.store.GetAnalysis(context.Background(), "r-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestParseThenAnalyzeTasks(t *testing.T) {
	f := newFixture(t, nil)
	f.addResume(t, "r-3", 8, extract.DOCX, buildDOCX(t, "Objective", "Education"))
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Run(ctx, TaskParse, "r-3"))
	assert.Equal(t, resumes.StatusCompleted, f.status(t, "r-3"))
	_, found, err := f.store.GetAnalysis(ctx, "r-3")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, f.dispatcher.Run(ctx, TaskAnalyze, "r-3"))
	assert.Equal(t, resumes.StatusCompleted, f.status(t, "r-3"))
	_, found, err = f.store.GetAnalysis(ctx, "r-3")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestReprocessingIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.addResume(t, "r-4", 8, extract.DOCX, buildDOCX(t, "Skills", "Projects"))
	ctx := context.Background()

	require.NoError(t, f.dispatcher.ProcessResume(ctx, "r-4"))
	first, _, err := f.store.GetAnalysis(ctx, "r-4")
	require.NoError(t, err)

	require.NoError(t, f.dispatcher.ProcessResume(ctx, "r-4"))
	second, _, err := f.store.GetAnalysis(ctx, "r-4")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, resumes.StatusCompleted, f.status(t, "r-4"))
}

func TestTransientStoreErrorRecovers(t *testing.T) {
	flaky := &flakyStore{Store: artifacts.NewMemoryStore(), failures: 1}
	f := newFixture(t, flaky)
	f.addResume(t, "r-5", 3, extract.DOCX, buildDOCX(t, "Experience"))

	require.NoError(t, f.dispatcher.ProcessResume(context.Background(), "r-5"))
	assert.Equal(t, []time.Duration{5 * time.Second}, f.sleeps)
	assert.Equal(t, resumes.StatusCompleted, f.status(t, "r-5"))

	errs := f.activity.Filter(activitylog.ActionError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "[transient_store]")
}

func TestMissingResumeIsFatalWithoutSideEffects(t *testing.T) {
	f := newFixture(t, nil)

	err := f.dispatcher.ProcessResume(context.Background(), "ghost")
	var perm *PermanentFailure
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, KindResumeNotFound, perm.Kind)
	assert.ErrorIs(t, err, resumes.ErrNotFound)
	assert.Empty(t, f.activity.Entries())
}

func TestRunRejectsUnknownTask(t *testing.T) {
	f := newFixture(t, nil)
	require.Error(t, f.dispatcher.Run(context.Background(), Task("render"), "r-1"))
}
