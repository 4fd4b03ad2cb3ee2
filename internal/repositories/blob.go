package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

const blobColumns = `id, kind, path, url, sha1, size, created_at, updated_at`

// BlobRepository implements models.Repository[*models.Blob] for the download cache index.
//
// Paths are unique: recording a file twice refreshes its row instead of adding one.
type BlobRepository struct {
	db *sql.DB
}

// NewBlobRepository creates a new BlobRepository with the given database connection
func NewBlobRepository(db *sql.DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Create inserts a new [models.Blob] with a generated ID
func (r *BlobRepository) Create(blob *models.Blob) error {
	blob.SetID(shared.GenerateID())
	if err := blob.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `INSERT INTO blobs (` + blobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.Exec(query,
		blob.ID(),
		blob.Kind().String(),
		blob.Path(),
		blob.URL(),
		blob.SHA1(),
		blob.Size(),
		blob.CreatedAt(),
		blob.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert blob: %w", err)
	}
	return nil
}

// Get retrieves a blob by ID
func (r *BlobRepository) Get(id string) (*models.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// GetByPath retrieves the blob stored at path
func (r *BlobRepository) GetByPath(path string) (*models.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE path = ?`
	return r.scan(r.db.QueryRow(query, path))
}

// Update refreshes the source, hash and size of an existing blob
func (r *BlobRepository) Update(blob *models.Blob) error {
	if err := blob.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	blob.SetUpdatedAt(now)

	query := `UPDATE blobs SET url = ?, sha1 = ?, size = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.Exec(query, blob.URL(), blob.SHA1(), blob.Size(), now, blob.ID())
	if err != nil {
		return fmt.Errorf("failed to update blob: %w", err)
	}
	return affected(result, "blob", blob.ID())
}

// Delete removes a blob row. The file itself is left alone.
func (r *BlobRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM blobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return affected(result, "blob", id)
}

// List retrieves blobs matching the criteria "kind" ([models.Kind] or its name) and "sha1", ordered by path
func (r *BlobRepository) List(criteria map[string]any) ([]*models.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE 1 = 1`
	args := []any{}

	switch kind := criteria["kind"].(type) {
	case models.Kind:
		query += " AND kind = ?"
		args = append(args, kind.String())
	case string:
		if kind != "" {
			query += " AND kind = ?"
			args = append(args, kind)
		}
	}

	if sum, ok := criteria["sha1"].(string); ok && sum != "" {
		query += " AND sha1 = ?"
		args = append(args, sum)
	}

	query += " ORDER BY path ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query blobs: %w", err)
	}
	defer rows.Close()

	var blobs []*models.Blob
	for rows.Next() {
		blob, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, blob)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return blobs, nil
}

// Record upserts the row for a file the download service just wrote.
func (r *BlobRepository) Record(ctx context.Context, a *models.Artifact, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	blob := models.NewBlob(a, path, info.Size())
	blob.SetID(shared.GenerateID())

	query := `
		INSERT INTO blobs (` + blobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind = excluded.kind,
			url = excluded.url,
			sha1 = excluded.sha1,
			size = excluded.size,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		blob.ID(),
		blob.Kind().String(),
		blob.Path(),
		blob.URL(),
		blob.SHA1(),
		blob.Size(),
		blob.CreatedAt(),
		blob.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to record blob: %w", err)
	}
	return nil
}

// Prune deletes the rows whose file no longer exists and returns how many were removed.
func (r *BlobRepository) Prune(ctx context.Context) (int, error) {
	blobs, err := r.List(nil)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, b := range blobs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if shared.FileExists(b.Path()) {
			continue
		}
		if _, err := r.db.ExecContext(ctx, `DELETE FROM blobs WHERE id = ?`, b.ID()); err != nil {
			return removed, fmt.Errorf("failed to prune blob: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Stats returns the row count and total bytes indexed.
func (r *BlobRepository) Stats() (count int, size int64, err error) {
	err = r.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM blobs`).Scan(&count, &size)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read blob stats: %w", err)
	}
	return count, size, nil
}

func (r *BlobRepository) scan(s scanner) (*models.Blob, error) {
	var (
		id, kind, path, url, sum string
		size                     int64
		createdAt, updatedAt     time.Time
	)

	err := s.Scan(&id, &kind, &path, &url, &sum, &size, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: blob", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan blob: %w", err)
	}

	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	return models.RestoreBlob(id, k, path, url, sum, size, createdAt, updatedAt), nil
}
