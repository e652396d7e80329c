//go:build integration

package repository

import (
	"testing"

	"github.com/JL037/mlbtracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFKs(t *testing.T, db *Database) (seasonID, homeID, awayID int64) {
	t.Helper()
	ctx := t.Context()

	_, err := db.UpsertTeams(ctx, []models.TeamRow{{ExternalID: 100, Name: "Home"}, {ExternalID: 101, Name: "Away"}})
	require.NoError(t, err)
	_, err = db.UpsertSeasons(ctx, []models.SeasonRow{{Year: 2024}})
	require.NoError(t, err)

	seasons, err := db.SeasonIDsByYear(ctx)
	require.NoError(t, err)
	teams, err := db.TeamIDsByExternalID(ctx)
	require.NoError(t, err)
	return seasons[2024], teams[100], teams[101]
}

func TestSeasonRepository_UpsertBatchDoesNothingOnConflict(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	n, err := db.Seasons.UpsertBatch(ctx, []models.SeasonRow{{Year: 2023}, {Year: 2024}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	before, err := db.Seasons.GetByYear(ctx, 2023)
	require.NoError(t, err)

	n, err = db.Seasons.UpsertBatch(ctx, []models.SeasonRow{{Year: 2023}, {Year: 2024}})
	require.NoError(t, err)
	assert.Equal(t, 2, n, "Repeat runs report the rows submitted")

	season, err := db.Seasons.GetByYear(ctx, 2023)
	require.NoError(t, err)
	assert.Equal(t, before.ID, season.ID, "Existing seasons should not be rewritten")
}

func TestGameRepository_UpsertChunk(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seasonID, homeID, awayID := seedFKs(t, db)

	row := models.BoundGameRow{
		ExternalGameID:     745000,
		Date:               "2024-04-01",
		Status:             str("Scheduled"),
		SeasonID:           seasonID,
		ScheduledStartTime: str("2024-04-01T23:05:00Z"),
		HomeTeamID:         homeID,
		AwayTeamID:         awayID,
	}

	n, err := db.Games.UpsertChunk(ctx, []models.BoundGameRow{row})
	require.NoError(t, err, "Should insert game")
	assert.Equal(t, 1, n)

	row.Status = str("Final")
	row.OfficialStartTime = str("2024-04-01T23:07:00Z")
	_, err = db.Games.UpsertChunk(ctx, []models.BoundGameRow{row})
	require.NoError(t, err, "Should update game")

	game, err := db.Games.GetByExternalID(ctx, 745000)
	require.NoError(t, err)
	assert.Equal(t, "Final", game.Status.String)
	assert.True(t, game.OfficialStartTime.Valid)

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	byTeam, err := db.Games.ListByTeam(ctx, awayID)
	require.NoError(t, err)
	assert.Len(t, byTeam, 1)

	bySeason, err := db.Games.ListBySeason(ctx, seasonID)
	require.NoError(t, err)
	assert.Len(t, bySeason, 1)
}

func TestGameRepository_UpsertChunkRollsBack(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seasonID, homeID, awayID := seedFKs(t, db)

	rows := []models.BoundGameRow{
		{ExternalGameID: 1, Date: "2024-04-01", SeasonID: seasonID, HomeTeamID: homeID, AwayTeamID: awayID},
		{ExternalGameID: 2, Date: "2024-04-01", SeasonID: seasonID, HomeTeamID: 987654, AwayTeamID: awayID},
	}

	_, err := db.Games.UpsertChunk(ctx, rows)
	require.Error(t, err, "Foreign key violation should fail the chunk")

	count, err := db.Games.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "Nothing from the failed chunk should be committed")
}
