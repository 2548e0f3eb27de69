package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists reports in a single jsonb-backed table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore ensures the reports table exists and returns the
// store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	schema := `
		CREATE TABLE IF NOT EXISTS factor_reports (
			id          UUID PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			expression  TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			data        JSONB NOT NULL
		)
	`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create factor_reports table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Save(ctx context.Context, r *Report) error {
	query := `
		INSERT INTO factor_reports (id, name, description, expression, created_at, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			expression = EXCLUDED.expression,
			data = EXCLUDED.data
	`

	_, err := s.pool.Exec(ctx, query,
		r.ID, r.Name, r.Description, r.Expression, r.CreatedAt, r.Data,
	)
	if err != nil {
		return fmt.Errorf("save report %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*Report, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, name, description, expression, created_at, data
		FROM factor_reports
		WHERE id = $1
	`

	var r Report
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.Name, &r.Description, &r.Expression, &r.CreatedAt, &r.Data,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", id, err)
	}
	return &r, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Report, error) {
	query := `
		SELECT id, name, description, expression, created_at, data
		FROM factor_reports
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var reports []*Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.Expression, &r.CreatedAt, &r.Data); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, &r)
	}
	return reports, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM factor_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
