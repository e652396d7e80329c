package repository

import (
	"context"
	"fmt"

	"github.com/JL037/mlbtracker/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

const gameColumns = `id, game_id, season_id, date, status, location,
	scheduled_start_time, official_start_time, home_team_id, away_team_id,
	created_at, updated_at`

const upsertGameQuery = `
	INSERT INTO games (
		game_id, season_id, date, status, location,
		scheduled_start_time, official_start_time, home_team_id, away_team_id
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (game_id) DO UPDATE SET
		season_id = EXCLUDED.season_id,
		date = EXCLUDED.date,
		status = EXCLUDED.status,
		location = EXCLUDED.location,
		scheduled_start_time = EXCLUDED.scheduled_start_time,
		official_start_time = EXCLUDED.official_start_time,
		home_team_id = EXCLUDED.home_team_id,
		away_team_id = EXCLUDED.away_team_id,
		updated_at = NOW()
`

// UpsertChunk writes one chunk of games in its own transaction
func (r *GameRepository) UpsertChunk(ctx context.Context, rows []models.BoundGameRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		g, err := row.ToGame()
		if err != nil {
			return 0, err
		}
		batch.Queue(upsertGameQuery,
			g.ExternalGameID, g.SeasonID, g.Date, g.Status, g.Location,
			g.ScheduledStartTime, g.OfficialStartTime, g.HomeTeamID, g.AwayTeamID,
		)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin game chunk: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	n, err := execBatch(tx.SendBatch(ctx, batch), batch.Len())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert games: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit game chunk: %w", err)
	}

	log.Debug().Int("count", n).Msg("Game chunk upserted")
	return n, nil
}

// GetByExternalID retrieves a game by its gamePk
func (r *GameRepository) GetByExternalID(ctx context.Context, gamePk int64) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE game_id = $1`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, gamePk))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game not found: game_id=%d", gamePk)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// ListBySeason retrieves a season's games in date order
func (r *GameRepository) ListBySeason(ctx context.Context, seasonID int64) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE season_id = $1
		ORDER BY date, scheduled_start_time NULLS LAST, game_id`

	return r.list(ctx, "season", query, seasonID)
}

// ListByTeam retrieves every game a team played home or away
func (r *GameRepository) ListByTeam(ctx context.Context, teamID int64) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE home_team_id = $1 OR away_team_id = $1
		ORDER BY date, game_id`

	return r.list(ctx, "team", query, teamID)
}

// Count returns the total number of games
func (r *GameRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM games`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return count, nil
}

func (r *GameRepository) list(ctx context.Context, by, query string, arg int64) ([]*models.Game, error) {
	rows, err := r.db.Pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list games by %s: %w", by, err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	return games, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var g models.Game
	err := row.Scan(
		&g.ID, &g.ExternalGameID, &g.SeasonID, &g.Date, &g.Status, &g.Location,
		&g.ScheduledStartTime, &g.OfficialStartTime, &g.HomeTeamID, &g.AwayTeamID,
		&g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
