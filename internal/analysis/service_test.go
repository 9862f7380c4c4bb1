package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-pipeline/internal/artifacts"
)

type failingReader struct{ err error }

func (f failingReader) GetContent(context.Context, string) (artifacts.ContentArtifact, bool, error) {
	return artifacts.ContentArtifact{}, false, f.err
}

func TestServiceAnalyzeBeforeExtraction(t *testing.T) {
	svc := NewService(artifacts.NewMemoryStore())

	_, _, err := svc.Analyze(context.Background(), "r-1")
	var missing *MissingContentError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "r-1", missing.ResumeID)
}

func TestServiceAnalyzeStoredContent(t *testing.T) {
	ctx := context.Background()
	store := artifacts.NewMemoryStore()
	require.NoError(t, store.PutContent(ctx, "r-1", artifacts.ContentArtifact{UserID: 5, RawText: ""}))

	res, doc, err := NewService(store).Analyze(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, 3.8, res.OverallScore)
	assert.Equal(t, int64(5), doc.UserID)

	art := res.Artifact("r-1", doc.UserID)
	assert.Equal(t, "r-1", art.ResumeID)
	assert.Equal(t, int64(5), art.UserID)
	assert.Equal(t, 7.0, art.ATSCompatibilityScore)
	assert.Len(t, art.ImprovementSuggestions, 5)
}

func TestServicePropagatesStoreErrors(t *testing.T) {
	cause := &artifacts.TransientStoreError{Op: "find", Err: errors.New("timeout")}
	_, _, err := NewService(failingReader{err: cause}).Analyze(context.Background(), "r-1")

	var transient *artifacts.TransientStoreError
	assert.True(t, errors.As(err, &transient))
}
