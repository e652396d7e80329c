// Package loader writes transformed rows to storage in idempotent batches.
package loader

import (
	"context"
	"time"

	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// DefaultChunkSize bounds the rows written per game transaction
const DefaultChunkSize = 500

// ErrChunkFailed marks a game chunk whose transaction did not commit
var ErrChunkFailed = errors.New("game chunk failed")

// Store is the write side of the relational store
type Store interface {
	UpsertTeams(ctx context.Context, rows []models.TeamRow) (int, error)
	UpsertSeasons(ctx context.Context, rows []models.SeasonRow) (int, error)
	// UpsertGameChunk writes rows in one transaction
	UpsertGameChunk(ctx context.Context, rows []models.BoundGameRow) (int, error)
}

// GameLoadResult reports the outcome of UpsertGames
type GameLoadResult struct {
	Written    int
	Skipped    int
	Duplicates int
	Chunks     int
}

// Loader dedupes and batches rows before handing them to a Store
type Loader struct {
	store     Store
	chunkSize int
}

// New creates a Loader. A non-positive chunk size uses DefaultChunkSize.
func New(store Store, chunkSize int) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Loader{store: store, chunkSize: chunkSize}
}

// UpsertTeams writes teams keyed on external id. Duplicate ids keep the last row.
func (l *Loader) UpsertTeams(ctx context.Context, rows []models.TeamRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	rows = collapseTeams(rows)
	n, err := l.timed(ctx, "teams", func(ctx context.Context) (int, error) {
		return l.store.UpsertTeams(ctx, rows)
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to upsert teams")
	}
	metrics.RecordUpserted("teams", n)
	return n, nil
}

// UpsertSeasons writes seasons keyed on year. Existing seasons are left alone.
func (l *Loader) UpsertSeasons(ctx context.Context, rows []models.SeasonRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	n, err := l.timed(ctx, "seasons", func(ctx context.Context) (int, error) {
		return l.store.UpsertSeasons(ctx, rows)
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to upsert seasons")
	}
	metrics.RecordUpserted("seasons", n)
	return n, nil
}

// UpsertGames skips rows without both team ids, dedupes on external game id and
// writes the survivors chunk by chunk. Each chunk commits on its own, so on
// failure the returned result still counts the chunks already written.
func (l *Loader) UpsertGames(ctx context.Context, rows []models.BoundGameRow) (GameLoadResult, error) {
	var result GameLoadResult

	kept := make([]models.BoundGameRow, 0, len(rows))
	for _, r := range rows {
		if r.HomeTeamID == 0 || r.AwayTeamID == 0 {
			result.Skipped++
			continue
		}
		kept = append(kept, r)
	}
	metrics.RecordSkipped("games", "missing_team", result.Skipped)

	deduped := Dedupe(kept)
	result.Duplicates = len(kept) - len(deduped)
	metrics.RecordSkipped("games", "duplicate", result.Duplicates)

	for _, chunk := range Chunk(deduped, l.chunkSize) {
		n, err := l.timed(ctx, "games", func(ctx context.Context) (int, error) {
			return l.store.UpsertGameChunk(ctx, chunk)
		})
		if err != nil {
			metrics.RecordUpserted("games", result.Written)
			return result, errors.Mark(
				errors.Wrapf(err, "chunk %d (%d rows)", result.Chunks+1, len(chunk)),
				ErrChunkFailed,
			)
		}
		result.Chunks++
		result.Written += n

		log.Debug().
			Int("chunk", result.Chunks).
			Int("rows", n).
			Msg("Game chunk committed")
	}

	metrics.RecordUpserted("games", result.Written)
	return result, nil
}

func (l *Loader) timed(ctx context.Context, table string, fn func(context.Context) (int, error)) (int, error) {
	start := time.Now()
	n, err := fn(ctx)
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordDBWrite(table, status, time.Since(start).Seconds())
	return n, err
}

// Chunk splits rows into consecutive slices of at most size rows
func Chunk(rows []models.BoundGameRow, size int) [][]models.BoundGameRow {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]models.BoundGameRow
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[start:end])
	}
	return chunks
}

func collapseTeams(rows []models.TeamRow) []models.TeamRow {
	pos := make(map[int64]int, len(rows))
	out := make([]models.TeamRow, 0, len(rows))
	for _, r := range rows {
		if i, ok := pos[r.ExternalID]; ok {
			out[i] = r
			continue
		}
		pos[r.ExternalID] = len(out)
		out = append(out, r)
	}
	return out
}
