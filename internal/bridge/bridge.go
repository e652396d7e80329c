// Package bridge resolves upstream identifiers on game rows to internal ids.
package bridge

import (
	"context"

	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/models"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// Lookup reads the id mappings the bridge needs from storage
type Lookup interface {
	SeasonIDsByYear(ctx context.Context) (map[int]int64, error)
	TeamIDsByExternalID(ctx context.Context) (map[int64]int64, error)
}

// Index is a snapshot of the storage id mappings
type Index struct {
	seasons map[int]int64
	teams   map[int64]int64
}

// NewIndex wraps the given maps. Nil maps resolve nothing.
func NewIndex(seasons map[int]int64, teams map[int64]int64) Index {
	return Index{seasons: seasons, teams: teams}
}

// LoadIndex reads both mappings in one pass
func LoadIndex(ctx context.Context, lookup Lookup) (Index, error) {
	seasons, err := lookup.SeasonIDsByYear(ctx)
	if err != nil {
		return Index{}, errors.Wrap(err, "failed to load season ids")
	}
	teams, err := lookup.TeamIDsByExternalID(ctx)
	if err != nil {
		return Index{}, errors.Wrap(err, "failed to load team ids")
	}
	return NewIndex(seasons, teams), nil
}

// Season returns the internal id for a season year
func (ix Index) Season(year int) (int64, bool) {
	if year == 0 {
		return 0, false
	}
	id, ok := ix.seasons[year]
	return id, ok && id != 0
}

// Team returns the internal id for an external team id
func (ix Index) Team(externalID int64) (int64, bool) {
	if externalID == 0 {
		return 0, false
	}
	id, ok := ix.teams[externalID]
	return id, ok && id != 0
}

// BindGamesFKs resolves every game against a fresh snapshot of storage.
// Unresolvable rows are rejected with reason missing_fk; err only reports read failures.
func BindGamesFKs(ctx context.Context, lookup Lookup, games []models.GameRow) ([]models.BoundGameRow, []models.RejectedRow, error) {
	if len(games) == 0 {
		return nil, nil, nil
	}

	index, err := LoadIndex(ctx, lookup)
	if err != nil {
		return nil, nil, err
	}

	bound, rejected := Bind(index, games)
	if len(rejected) > 0 {
		metrics.RecordSkipped("games", models.RejectReasonMissingFK, len(rejected))
		log.Warn().
			Int("rejected", len(rejected)).
			Int("bound", len(bound)).
			Msg("Games rejected for unresolved season or team ids")
	}
	return bound, rejected, nil
}

// Bind is the pure part of BindGamesFKs
func Bind(index Index, games []models.GameRow) ([]models.BoundGameRow, []models.RejectedRow) {
	bound := make([]models.BoundGameRow, 0, len(games))
	var rejected []models.RejectedRow

	for _, g := range games {
		seasonID, okSeason := index.Season(g.SeasonYear)
		homeID, okHome := index.Team(g.HomeTeamExternalID)
		awayID, okAway := index.Team(g.AwayTeamExternalID)

		if !okSeason || !okHome || !okAway {
			log.Debug().
				Int64("game_pk", g.ExternalGameID).
				Int("season", g.SeasonYear).
				Int64("home", g.HomeTeamExternalID).
				Int64("away", g.AwayTeamExternalID).
				Msg("Unresolved foreign key")
			rejected = append(rejected, models.RejectedRow{
				Reason:             models.RejectReasonMissingFK,
				ExternalGameID:     g.ExternalGameID,
				SeasonYear:         g.SeasonYear,
				HomeTeamExternalID: g.HomeTeamExternalID,
				AwayTeamExternalID: g.AwayTeamExternalID,
			})
			continue
		}

		bound = append(bound, models.BoundGameRow{
			ExternalGameID:     g.ExternalGameID,
			Date:               g.Date,
			Status:             g.Status,
			Location:           g.Location,
			SeasonID:           seasonID,
			ScheduledStartTime: g.ScheduledStartTime,
			OfficialStartTime:  g.OfficialStartTime,
			HomeTeamID:         homeID,
			AwayTeamID:         awayID,
		})
	}
	return bound, rejected
}
