package repository

import (
	"context"
	"fmt"

	"github.com/JL037/mlbtracker/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// TeamRepository handles team database operations
type TeamRepository struct {
	db *Database
}

const teamColumns = `id, team_id, name, abbreviation, location, league, division, created_at, updated_at`

// Division is only written on insert
const upsertTeamQuery = `
	INSERT INTO teams (team_id, name, abbreviation, location, league, division)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (team_id) DO UPDATE SET
		name = EXCLUDED.name,
		abbreviation = EXCLUDED.abbreviation,
		location = EXCLUDED.location,
		league = EXCLUDED.league,
		updated_at = NOW()
`

// UpsertBatch writes all teams in one batch keyed on the external team id
func (r *TeamRepository) UpsertBatch(ctx context.Context, rows []models.TeamRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		t := row.ToTeam()
		batch.Queue(upsertTeamQuery, t.ExternalID, t.Name, t.Abbreviation, t.Location, t.League, t.Division)
	}

	n, err := execBatch(r.db.Pool.SendBatch(ctx, batch), batch.Len())
	if err != nil {
		return 0, fmt.Errorf("failed to upsert teams: %w", err)
	}

	log.Debug().Int("count", n).Msg("Teams upserted")
	return n, nil
}

// GetByExternalID retrieves a team by its Stats API id
func (r *TeamRepository) GetByExternalID(ctx context.Context, externalID int64) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE team_id = $1`

	team, err := scanTeam(r.db.Pool.QueryRow(ctx, query, externalID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("team not found: team_id=%d", externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	return team, nil
}

// ExternalIDMap returns external team id -> internal id in one query
func (r *TeamRepository) ExternalIDMap(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT team_id, id FROM teams`)
	if err != nil {
		return nil, fmt.Errorf("failed to read team ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var ext, id int64
		if err := rows.Scan(&ext, &id); err != nil {
			return nil, fmt.Errorf("failed to scan team id: %w", err)
		}
		out[ext] = id
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team ids: %w", err)
	}

	return out, nil
}

// List retrieves all teams
func (r *TeamRepository) List(ctx context.Context) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teams: %w", err)
	}

	return teams, nil
}

// Count returns the total number of teams
func (r *TeamRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}

func scanTeam(row pgx.Row) (*models.Team, error) {
	var team models.Team
	err := row.Scan(
		&team.ID, &team.ExternalID, &team.Name, &team.Abbreviation,
		&team.Location, &team.League, &team.Division,
		&team.CreatedAt, &team.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &team, nil
}
