package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"resume-pipeline/internal/activitylog"
	"resume-pipeline/internal/artifacts"
	"resume-pipeline/internal/extract"
	"resume-pipeline/internal/resumes"
	"resume-pipeline/internal/shared/metrics"
	"resume-pipeline/internal/shared/storage/object"
)

type memFiles struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{data: make(map[string][]byte)}
}

func (m *memFiles) Save(ctx context.Context, ownerID int64, fileName string, r io.Reader) (object.Stored, error) {
	key, err := object.NewKey(ownerID, fileName)
	if err != nil {
		return object.Stored{}, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return object.Stored{}, err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return object.Stored{Key: key, Size: int64(len(b))}, nil
}

func (m *memFiles) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type flakyStore struct {
	artifacts.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) PutContent(ctx context.Context, resumeID string, doc artifacts.ContentArtifact) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return &artifacts.TransientStoreError{Op: "put content", Err: errors.New("connection reset by peer")}
	}
	f.mu.Unlock()
	return f.Store.PutContent(ctx, resumeID, doc)
}

type panickyStore struct {
	artifacts.Store
}

func (panickyStore) PutAnalysis(context.Context, string, artifacts.AnalysisArtifact) error {
	panic("driver blew up")
}

type fixture struct {
	repo       *resumes.MemoryRepo
	files      *memFiles
	store      artifacts.Store
	activity   *activitylog.MemoryRecorder
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	sleeps     []time.Duration
	dispatcher *Dispatcher
}

func newFixture(t *testing.T, store artifacts.Store) *fixture {
	t.Helper()
	if store == nil {
		store = artifacts.NewMemoryStore()
	}
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	f := &fixture{
		repo:     resumes.NewMemoryRepo(),
		files:    newMemFiles(),
		store:    store,
		activity: &activitylog.MemoryRecorder{},
		metrics:  m,
		registry: reg,
	}
	orch := NewOrchestrator(Deps{
		Resumes:   f.repo,
		Files:     f.files,
		Artifacts: f.store,
		Activity:  f.activity,
	})
	f.dispatcher = &Dispatcher{
		Orchestrator: orch,
		Runner: &Runner{
			Metrics: m,
			Sleep: func(_ context.Context, d time.Duration) error {
				f.sleeps = append(f.sleeps, d)
				return nil
			},
		},
	}
	return f
}

func (f *fixture) addResume(t *testing.T, id string, owner int64, format extract.Format, data []byte) {
	t.Helper()
	stored, err := f.files.Save(context.Background(), owner, "cv."+string(format), bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), resumes.Resume{
		ID:        id,
		OwnerID:   owner,
		FileKey:   stored.Key,
		Format:    format,
		Status:    resumes.StatusPending,
		CreatedAt: time.Now().UTC(),
	}))
}

func (f *fixture) status(t *testing.T, id string) resumes.Status {
	t.Helper()
	res, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return res.Status
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
