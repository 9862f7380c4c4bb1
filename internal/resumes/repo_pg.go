package resumes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"resume-pipeline/internal/extract"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new resume.
func (r *PGRepo) Create(ctx context.Context, res Resume) error {
	const query = `
INSERT INTO resumes (
    id,
    owner_id,
    title,
    file_key,
    format,
    original_filename,
    visibility,
    status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	visibility := res.Visibility
	if visibility == "" {
		visibility = VisibilityPrivate
	}
	status := res.Status
	if status == "" {
		status = StatusPending
	}
	updatedAt := res.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = res.CreatedAt
	}

	_, err := r.DB.ExecContext(
		ctx,
		query,
		res.ID,
		res.OwnerID,
		res.Title,
		res.FileKey,
		string(res.Format),
		res.OriginalFilename,
		string(visibility),
		string(status),
		res.CreatedAt,
		updatedAt,
	)
	return err
}

const selectColumns = `id, owner_id, title, file_key, format, original_filename, visibility, status, created_at, updated_at`

// Get returns a resume by id.
func (r *PGRepo) Get(ctx context.Context, id string) (Resume, error) {
	query := `SELECT ` + selectColumns + ` FROM resumes WHERE id = $1`
	res, err := scanResume(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	return res, nil
}

// ListByOwner returns an owner's resumes, newest first.
func (r *PGRepo) ListByOwner(ctx context.Context, ownerID int64, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + selectColumns + `
FROM resumes
WHERE owner_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Resume{}
	for rows.Next() {
		res, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpdateStatus moves a resume to status when its current status allows it.
func (r *PGRepo) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}
	from := allowedFrom(status)
	args := []any{id, string(status)}
	placeholders := make([]string, 0, len(from))
	for _, s := range from {
		args = append(args, string(s))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := `
UPDATE resumes
SET status = $2, updated_at = now()
WHERE id = $1 AND status IN (` + strings.Join(placeholders, ", ") + `)`

	result, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	var current string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM resumes WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResume(row rowScanner) (Resume, error) {
	var res Resume
	var title sql.NullString
	var originalName sql.NullString
	var format, visibility, status string
	if err := row.Scan(
		&res.ID,
		&res.OwnerID,
		&title,
		&res.FileKey,
		&format,
		&originalName,
		&visibility,
		&status,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return Resume{}, err
	}
	if title.Valid {
		res.Title = title.String
	}
	if originalName.Valid {
		res.OriginalFilename = originalName.String
	}
	res.Format = extract.Format(format)
	res.Visibility = Visibility(visibility)
	res.Status = Status(status)
	return res, nil
}

var _ Repo = (*PGRepo)(nil)
