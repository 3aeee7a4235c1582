package mediacache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/mariusznazar/airdevs3-app/api/schemas"
)

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

const createAnalysesTable = `
CREATE TABLE IF NOT EXISTS media_analyses (
	file_name   TEXT PRIMARY KEY,
	file_type   TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	category    TEXT NOT NULL,
	url         TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// PostgresStore persists MediaAnalysis records in PostgreSQL. Writes upsert
// on the file name so repeated analyses of the same file replace the old
// record in place.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

var _ schemas.AnalysisStore = (*PostgresStore)(nil)

// NewPostgresStore verifies the connection and ensures the analyses table
// exists.
func NewPostgresStore(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createAnalysesTable); err != nil {
		return nil, fmt.Errorf("failed to ensure analyses table: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{pool: pool, log: logger.Named("analyses")}, nil
}

// Get returns the record for the file name, or nil when absent.
func (s *PostgresStore) Get(ctx context.Context, fileName string) (*schemas.MediaAnalysis, error) {
	const query = `
		SELECT file_name, file_type, description, category, url, created_at, updated_at
		FROM media_analyses WHERE file_name = $1`

	var a schemas.MediaAnalysis
	err := s.pool.QueryRow(ctx, query, fileName).Scan(
		&a.FileName, &a.FileType, &a.Description, &a.Category, &a.URL, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis: %w", err)
	}
	a.Cached = true
	return &a, nil
}

// Put upserts the record keyed by its file name.
func (s *PostgresStore) Put(ctx context.Context, analysis schemas.MediaAnalysis) error {
	const query = `
		INSERT INTO media_analyses (file_name, file_type, description, category, url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (file_name) DO UPDATE SET
			file_type = EXCLUDED.file_type,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			url = EXCLUDED.url,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		analysis.FileName, analysis.FileType, analysis.Description, analysis.Category,
		analysis.URL, analysis.CreatedAt.UTC(), analysis.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert analysis: %w", err)
	}
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (s *PostgresStore) Delete(ctx context.Context, fileName string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM media_analyses WHERE file_name = $1`, fileName); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	return nil
}

// List returns all records of the category, newest first.
func (s *PostgresStore) List(ctx context.Context, category string) ([]schemas.MediaAnalysis, error) {
	const query = `
		SELECT file_name, file_type, description, category, url, created_at, updated_at
		FROM media_analyses WHERE category = $1
		ORDER BY updated_at DESC, file_name ASC`

	rows, err := s.pool.Query(ctx, query, category)
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	defer rows.Close()

	var out []schemas.MediaAnalysis
	for rows.Next() {
		var a schemas.MediaAnalysis
		if err := rows.Scan(&a.FileName, &a.FileType, &a.Description, &a.Category, &a.URL, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		a.Cached = true
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis rows: %w", err)
	}
	return out, nil
}

// Clear removes every record of the category.
func (s *PostgresStore) Clear(ctx context.Context, category string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM media_analyses WHERE category = $1`, category)
	if err != nil {
		return fmt.Errorf("failed to clear analyses: %w", err)
	}
	s.log.Info("Cleared cached analyses", zap.String("category", category), zap.Int64("removed", tag.RowsAffected()))
	return nil
}
