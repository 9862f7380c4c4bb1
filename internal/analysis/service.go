package analysis

import (
	"context"
	"fmt"

	"resume-pipeline/internal/artifacts"
)

// MissingContentError is returned when a resume has no extracted content yet.
type MissingContentError struct {
	ResumeID string
}

func (e *MissingContentError) Error() string {
	return fmt.Sprintf("no extracted content for resume %s", e.ResumeID)
}

// Service analyzes stored content. It never writes; persisting the result is
// the caller's job.
type Service struct {
	contents artifacts.ContentReader
}

// NewService creates a Service reading content from r.
func NewService(r artifacts.ContentReader) *Service {
	return &Service{contents: r}
}

// Analyze loads the content artifact for resumeID and scores its raw text.
func (s *Service) Analyze(ctx context.Context, resumeID string) (Result, artifacts.ContentArtifact, error) {
	doc, found, err := s.contents.GetContent(ctx, resumeID)
	if err != nil {
		return Result{}, artifacts.ContentArtifact{}, err
	}
	if !found {
		return Result{}, artifacts.ContentArtifact{}, &MissingContentError{ResumeID: resumeID}
	}
	return Analyze(doc.RawText), doc, nil
}

// Artifact converts a result into the stored document shape.
func (r Result) Artifact(resumeID string, ownerID int64) artifacts.AnalysisArtifact {
	return artifacts.AnalysisArtifact{
		ResumeID:               resumeID,
		UserID:                 ownerID,
		OverallScore:           r.OverallScore,
		ContentScore:           r.ContentScore,
		FormattingScore:        r.FormattingScore,
		ATSCompatibilityScore:  r.ATSScore,
		Strengths:              append([]string{}, r.Strengths...),
		Weaknesses:             append([]string{}, r.Weaknesses...),
		ImprovementSuggestions: append([]string{}, r.Suggestions...),
	}
}
