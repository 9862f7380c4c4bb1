// Package artifacts persists the documents derived from a resume: its extracted
// content and its analysis. Both are keyed by resume id.
package artifacts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var (
	// ErrInvalidOwner is returned when an owner id is not an integer.
	ErrInvalidOwner = errors.New("invalid owner id")
	// ErrIdentifierMismatch is returned when a document's resume_id disagrees with its key.
	ErrIdentifierMismatch = errors.New("resume_id does not match document key")
	// ErrMissingID is returned for an empty resume id.
	ErrMissingID = errors.New("resume id is required")
	// ErrInvalidUpdate is returned for partial updates naming unknown fields or carrying wrong types.
	ErrInvalidUpdate = errors.New("invalid artifact update")
	// ErrNotFound is returned when a partial update matches no document.
	ErrNotFound = errors.New("artifact not found")
)

// TransientStoreError marks a store failure that may succeed on retry.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("artifact store %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// Store reads and writes artifacts. Get methods report absence through the
// found flag and never as an error. Put methods replace or insert.
type Store interface {
	PutContent(ctx context.Context, resumeID string, doc ContentArtifact) error
	GetContent(ctx context.Context, resumeID string) (ContentArtifact, bool, error)
	UpdateContent(ctx context.Context, resumeID string, fields map[string]any) error

	PutAnalysis(ctx context.Context, resumeID string, doc AnalysisArtifact) error
	GetAnalysis(ctx context.Context, resumeID string) (AnalysisArtifact, bool, error)
	UpdateAnalysis(ctx context.Context, resumeID string, fields map[string]any) error
}

// ContentReader is the read side used by analysis and matching.
type ContentReader interface {
	GetContent(ctx context.Context, resumeID string) (ContentArtifact, bool, error)
}

// CoerceOwner converts an owner id of any integral representation to int64.
// Strings, booleans and non-integral numbers are rejected.
func CoerceOwner(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			break
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			break
		}
		return int64(n), nil
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %T %v", ErrInvalidOwner, v, v)
}

func integralFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOwner, f)
	}
	return int64(f), nil
}

// lookupKey is the stored key for resumeID. Reads and writes share it.
func lookupKey(resumeID string) string {
	return strings.TrimSpace(resumeID)
}

func checkKey(resumeID, docResumeID string, owner int64) (string, error) {
	key := lookupKey(resumeID)
	if key == "" {
		return "", ErrMissingID
	}
	if docResumeID != "" && docResumeID != key {
		return "", fmt.Errorf("%w: key %q, resume_id %q", ErrIdentifierMismatch, key, docResumeID)
	}
	if owner < 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidOwner, owner)
	}
	return key, nil
}

func normalizeContent(resumeID string, doc ContentArtifact) (ContentArtifact, error) {
	key, err := checkKey(resumeID, doc.ResumeID, doc.UserID)
	if err != nil {
		return ContentArtifact{}, err
	}
	if doc.ID != "" && doc.ID != key {
		return ContentArtifact{}, fmt.Errorf("%w: _id %q", ErrIdentifierMismatch, doc.ID)
	}
	out := doc.clone()
	out.ID, out.ResumeID = key, key
	return out, nil
}

func normalizeAnalysis(resumeID string, doc AnalysisArtifact) (AnalysisArtifact, error) {
	key, err := checkKey(resumeID, doc.ResumeID, doc.UserID)
	if err != nil {
		return AnalysisArtifact{}, err
	}
	if doc.ID != "" && doc.ID != key {
		return AnalysisArtifact{}, fmt.Errorf("%w: _id %q", ErrIdentifierMismatch, doc.ID)
	}
	out := doc.clone()
	out.ID, out.ResumeID = key, key
	return out, nil
}

// decodePatch validates a partial update into target. _id is dropped; a
// resume_id equal to the key is dropped, any other value is a mismatch.
func decodePatch(resumeID string, fields map[string]any, target any) (string, error) {
	key := lookupKey(resumeID)
	if key == "" {
		return "", ErrMissingID
	}

	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		clean[k] = v
	}
	delete(clean, "_id")
	if v, ok := clean["resume_id"]; ok {
		if s, _ := v.(string); s != key {
			return "", fmt.Errorf("%w: key %q, resume_id %v", ErrIdentifierMismatch, key, v)
		}
		delete(clean, "resume_id")
	}
	if v, ok := clean["user_id"]; ok {
		owner, err := CoerceOwner(v)
		if err != nil {
			return "", err
		}
		if owner < 0 {
			return "", fmt.Errorf("%w: %d", ErrInvalidOwner, owner)
		}
		clean["user_id"] = owner
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      target,
	})
	if err != nil {
		return "", err
	}
	if err := dec.Decode(clean); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUpdate, err)
	}
	return key, nil
}
