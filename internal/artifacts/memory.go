package artifacts

import (
	"context"
	"sync"
)

// MemoryStore keeps artifacts in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	contents map[string]ContentArtifact
	analyses map[string]AnalysisArtifact
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contents: make(map[string]ContentArtifact),
		analyses: make(map[string]AnalysisArtifact),
	}
}

func (s *MemoryStore) PutContent(ctx context.Context, resumeID string, doc ContentArtifact) error {
	normalized, err := normalizeContent(resumeID, doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.contents[normalized.ID] = normalized
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetContent(ctx context.Context, resumeID string) (ContentArtifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.contents[lookupKey(resumeID)]
	if !ok {
		return ContentArtifact{}, false, nil
	}
	return doc.clone(), true, nil
}

func (s *MemoryStore) UpdateContent(ctx context.Context, resumeID string, fields map[string]any) error {
	var patch contentPatch
	key, err := decodePatch(resumeID, fields, &patch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.contents[key]
	if !ok {
		return ErrNotFound
	}
	patch.apply(&doc)
	s.contents[key] = doc
	return nil
}

func (s *MemoryStore) PutAnalysis(ctx context.Context, resumeID string, doc AnalysisArtifact) error {
	normalized, err := normalizeAnalysis(resumeID, doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.analyses[normalized.ID] = normalized
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetAnalysis(ctx context.Context, resumeID string) (AnalysisArtifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.analyses[lookupKey(resumeID)]
	if !ok {
		return AnalysisArtifact{}, false, nil
	}
	return doc.clone(), true, nil
}

func (s *MemoryStore) UpdateAnalysis(ctx context.Context, resumeID string, fields map[string]any) error {
	var patch analysisPatch
	key, err := decodePatch(resumeID, fields, &patch)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.analyses[key]
	if !ok {
		return ErrNotFound
	}
	patch.apply(&doc)
	s.analyses[key] = doc
	return nil
}

var _ Store = (*MemoryStore)(nil)
