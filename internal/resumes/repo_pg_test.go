package resumes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"resume-pipeline/internal/extract"
)

var resumeColumns = []string{"id", "owner_id", "title", "file_key", "format", "original_filename", "visibility", "status", "created_at", "updated_at"}

func TestPGRepoCreateDefaultsStatusAndVisibility(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	created := time.Now().UTC()
	res := Resume{
		ID:               "0b7c5c7e-3a47-4a4c-9d84-3c7c0fd1f0a1",
		OwnerID:          42,
		Title:            "Backend",
		FileKey:          "abc/def_cv.pdf",
		Format:           extract.PDF,
		OriginalFilename: "cv.pdf",
		CreatedAt:        created,
	}

	mock.ExpectExec("INSERT INTO resumes").
		WithArgs(res.ID, res.OwnerID, res.Title, res.FileKey, "pdf", res.OriginalFilename, "private", "pending", created, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE id =").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(resumeColumns).
			AddRow("r-1", int64(9), nil, "k/cv.docx", "docx", "cv.docx", "public", "processing", now, now))

	repo := &PGRepo{DB: db}
	got, err := repo.Get(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.OwnerID != 9 || got.Format != extract.DOCX || got.Visibility != VisibilityPublic || got.Status != StatusProcessing {
		t.Fatalf("unexpected resume: %+v", got)
	}
	if got.Title != "" {
		t.Fatalf("expected empty title, got %q", got.Title)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT (.+) FROM resumes").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if _, err := repo.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT (.+) FROM resumes WHERE owner_id =").
		WithArgs(int64(3), 50, 0).
		WillReturnRows(sqlmock.NewRows(resumeColumns).
			AddRow("r-2", int64(3), "b", "k2", "pdf", "b.pdf", "private", "completed", now, now).
			AddRow("r-1", int64(3), "a", "k1", "pdf", "a.pdf", "private", "failed", now, now))

	repo := &PGRepo{DB: db}
	got, err := repo.ListByOwner(context.Background(), 3, 0, -1)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r-2" || got[1].Status != StatusFailed {
		t.Fatalf("unexpected list: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE resumes").
		WithArgs("r-1", "completed", "processing", "completed").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := &PGRepo{DB: db}
	if err := repo.UpdateStatus(context.Background(), "r-1", StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusRejectsBackwardMove(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE resumes").
		WithArgs("r-1", "failed", "processing", "failed").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM resumes").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

	repo := &PGRepo{DB: db}
	err = repo.UpdateStatus(context.Background(), "r-1", StatusFailed)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateStatusMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("UPDATE resumes").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM resumes").WithArgs("gone").WillReturnError(sql.ErrNoRows)

	repo := &PGRepo{DB: db}
	if err := repo.UpdateStatus(context.Background(), "gone", StatusProcessing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
