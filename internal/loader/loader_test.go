package loader

import (
	"context"
	"fmt"
	"testing"

	"github.com/JL037/mlbtracker/internal/models"
	"github.com/JL037/mlbtracker/internal/repository/memory"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore wraps the memory store and records game chunk sizes
type recordingStore struct {
	*memory.Store
	chunks    []int
	teamCalls int
	failAt    int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{Store: memory.NewStore()}
}

func (r *recordingStore) UpsertTeams(ctx context.Context, rows []models.TeamRow) (int, error) {
	r.teamCalls++
	return r.Store.UpsertTeams(ctx, rows)
}

func (r *recordingStore) UpsertGameChunk(ctx context.Context, rows []models.BoundGameRow) (int, error) {
	if r.failAt > 0 && len(r.chunks)+1 == r.failAt {
		return 0, errors.New("deadlock detected")
	}
	r.chunks = append(r.chunks, len(rows))
	return r.Store.UpsertGameChunk(ctx, rows)
}

func str(s string) *string { return &s }

func game(id int64) models.BoundGameRow {
	return models.BoundGameRow{
		ExternalGameID: id,
		Date:           "2023-04-01",
		SeasonID:       1,
		HomeTeamID:     10,
		AwayTeamID:     11,
	}
}

func games(n int) []models.BoundGameRow {
	rows := make([]models.BoundGameRow, n)
	for i := range rows {
		rows[i] = game(int64(i + 1))
	}
	return rows
}

func TestUpsertGames_ChunkBoundary(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 500)

	result, err := l.UpsertGames(context.Background(), games(1001))
	require.NoError(t, err)

	assert.Equal(t, []int{500, 500, 1}, store.chunks, "Should write exactly three chunks")
	assert.Equal(t, 1001, result.Written)
	assert.Equal(t, 3, result.Chunks)
	assert.Len(t, store.Games(), 1001)
}

func TestUpsertGames_DefaultChunkSize(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 0)

	_, err := l.UpsertGames(context.Background(), games(DefaultChunkSize+1))
	require.NoError(t, err)
	assert.Equal(t, []int{DefaultChunkSize, 1}, store.chunks)
}

func TestUpsertGames_PartialProgressOnChunkFailure(t *testing.T) {
	store := newRecordingStore()
	store.failAt = 2
	l := New(store, 10)

	result, err := l.UpsertGames(context.Background(), games(25))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrChunkFailed))
	assert.Contains(t, err.Error(), "deadlock detected")

	assert.Equal(t, 10, result.Written, "First chunk stays committed")
	assert.Equal(t, 1, result.Chunks)
	assert.Len(t, store.Games(), 10)

	store.failAt = 0
	result, err = l.UpsertGames(context.Background(), games(25))
	require.NoError(t, err, "Re-running after a failure is safe")
	assert.Equal(t, 25, result.Written)
	assert.Len(t, store.Games(), 25)
}

func TestUpsertGames_SkipsMissingTeams(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 500)

	noHome := game(2)
	noHome.HomeTeamID = 0
	noAway := game(3)
	noAway.AwayTeamID = 0

	result, err := l.UpsertGames(context.Background(), []models.BoundGameRow{game(1), noHome, noAway})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 2, result.Skipped)
	assert.Len(t, store.Games(), 1)
}

func TestUpsertGames_Idempotent(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 500)
	ctx := context.Background()

	rows := games(20)
	_, err := l.UpsertGames(ctx, rows)
	require.NoError(t, err)
	first := store.Games()

	_, err = l.UpsertGames(ctx, rows)
	require.NoError(t, err)
	second := store.Games()

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].ExternalGameID, second[i].ExternalGameID)
	}
}

func TestUpsertGames_DedupesBeforeWriting(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 500)

	pre := game(7)
	pre.Status = str("Pre-Game")
	final := game(7)
	final.Status = str("Final")

	result, err := l.UpsertGames(context.Background(), []models.BoundGameRow{pre, game(8), final})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Written)
	assert.Equal(t, 1, result.Duplicates)

	g, ok := store.Game(7)
	require.True(t, ok)
	assert.Equal(t, "Final", g.Status.String)
}

func TestUpsertGames_EmptyInput(t *testing.T) {
	store := newRecordingStore()
	result, err := New(store, 500).UpsertGames(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, GameLoadResult{}, result)
	assert.Empty(t, store.chunks)
}

func TestUpsertTeams(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 500)
	ctx := context.Background()

	n, err := l.UpsertTeams(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.teamCalls, "Empty input must not touch storage")

	rows := make([]models.TeamRow, 0, 30)
	for i := 1; i <= 30; i++ {
		rows = append(rows, models.TeamRow{ExternalID: int64(100 + i), Name: fmt.Sprintf("Team %d", i)})
	}
	rows = append(rows, models.TeamRow{ExternalID: 101, Name: "Renamed"})

	n, err = l.UpsertTeams(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 30, n, "Duplicate external ids are collapsed")

	team, ok := store.Team(101)
	require.True(t, ok)
	assert.Equal(t, "Renamed", team.Name, "Last duplicate wins")

	n, err = l.UpsertTeams(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	assert.Len(t, store.Teams(), 30)
}

func TestUpsertSeasons(t *testing.T) {
	store := newRecordingStore()
	l := New(store, 500)
	ctx := context.Background()

	n, err := l.UpsertSeasons(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows := []models.SeasonRow{{Year: 2022}, {Year: 2023}}
	n, err = l.UpsertSeasons(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = l.UpsertSeasons(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "Repeat runs report the rows submitted")
	assert.Len(t, store.Seasons(), 2)
}
