package repository

import (
	"context"
	"fmt"

	"github.com/JL037/mlbtracker/internal/models"

	"github.com/jackc/pgx/v5"
)

// SeasonRepository handles season database operations
type SeasonRepository struct {
	db *Database
}

// UpsertBatch inserts missing seasons and returns how many rows were
// submitted. Existing years are untouched.
func (r *SeasonRepository) UpsertBatch(ctx context.Context, rows []models.SeasonRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`INSERT INTO seasons (year) VALUES ($1) ON CONFLICT (year) DO NOTHING`, row.Year)
	}

	if _, err := execBatch(r.db.Pool.SendBatch(ctx, batch), batch.Len()); err != nil {
		return 0, fmt.Errorf("failed to upsert seasons: %w", err)
	}
	return len(rows), nil
}

// GetByYear retrieves a season by year
func (r *SeasonRepository) GetByYear(ctx context.Context, year int) (*models.Season, error) {
	var s models.Season
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, year, created_at FROM seasons WHERE year = $1`, year,
	).Scan(&s.ID, &s.Year, &s.CreatedAt)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("season not found: year=%d", year)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get season: %w", err)
	}

	return &s, nil
}

// IDsByYear returns year -> internal season id in one query
func (r *SeasonRepository) IDsByYear(ctx context.Context) (map[int]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT year, id FROM seasons`)
	if err != nil {
		return nil, fmt.Errorf("failed to read season ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int]int64)
	for rows.Next() {
		var year int
		var id int64
		if err := rows.Scan(&year, &id); err != nil {
			return nil, fmt.Errorf("failed to scan season id: %w", err)
		}
		out[year] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season ids: %w", err)
	}

	return out, nil
}

// List retrieves all seasons ordered by year
func (r *SeasonRepository) List(ctx context.Context) ([]*models.Season, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, year, created_at FROM seasons ORDER BY year`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []*models.Season
	for rows.Next() {
		var s models.Season
		if err := rows.Scan(&s.ID, &s.Year, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating seasons: %w", err)
	}

	return seasons, nil
}
