// Package transform maps decoded Stats API payloads into typed rows.
package transform

import (
	"strconv"
	"strings"

	"github.com/JL037/mlbtracker/internal/models"

	"github.com/cockroachdb/errors"
)

var (
	// ErrMissingGameID is returned when a schedule game has no gamePk
	ErrMissingGameID = errors.New("game is missing its external id")

	// ErrMissingTeamField is returned when a team has no id or name
	ErrMissingTeamField = errors.New("team is missing a required field")
)

// ScheduleStats summarizes one schedule transform
type ScheduleStats struct {
	Days           int
	Games          int
	Kept           int
	FilteredByType int
}

// MapTeam normalizes a raw team. Location prefers locationName over the venue city.
func MapTeam(raw models.RawTeam) (models.TeamRow, error) {
	name := strings.TrimSpace(raw.Name)
	if raw.ID == 0 || name == "" {
		return models.TeamRow{}, errors.Wrapf(ErrMissingTeamField, "team id=%d name=%q", raw.ID, raw.Name)
	}

	row := models.TeamRow{
		ExternalID:   raw.ID,
		Name:         name,
		Abbreviation: models.StringPtr(strings.TrimSpace(raw.Abbreviation)),
		Location:     models.StringPtr(strings.TrimSpace(raw.LocationName)),
	}
	if row.Location == nil && raw.Venue != nil {
		row.Location = models.StringPtr(strings.TrimSpace(raw.Venue.City))
	}
	if raw.League != nil {
		row.League = models.StringPtr(raw.League.Name)
	}
	if raw.Division != nil {
		row.Division = models.StringPtr(raw.Division.Name)
	}
	return row, nil
}

// MapTeams maps every team, failing on the first malformed one
func MapTeams(raws []models.RawTeam) ([]models.TeamRow, error) {
	rows := make([]models.TeamRow, 0, len(raws))
	for _, raw := range raws {
		row, err := MapTeam(raw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MapGamesFromSchedule flattens schedule days into regular-season game rows
func MapGamesFromSchedule(days []models.RawScheduleDay, year int) ([]models.GameRow, error) {
	rows, _, err := MapGamesFromScheduleWithStats(days, year)
	return rows, err
}

// MapGamesFromScheduleWithStats is MapGamesFromSchedule plus counts for reporting.
// A year of 0 binds each game to its own season field, or the year of its date.
func MapGamesFromScheduleWithStats(days []models.RawScheduleDay, year int) ([]models.GameRow, ScheduleStats, error) {
	var (
		rows  []models.GameRow
		stats ScheduleStats
	)

	for _, day := range days {
		stats.Days++
		for _, g := range day.Games {
			stats.Games++
			if g.GameType != models.RegularSeason {
				stats.FilteredByType++
				continue
			}
			if g.GamePk == nil || *g.GamePk == 0 {
				return nil, stats, errors.Wrapf(ErrMissingGameID, "schedule day %s", day.Date)
			}

			row := mapGame(g, day.Date)
			row.SeasonYear = year
			if year <= 0 {
				row.SeasonYear = seasonYearOf(g, row.Date)
			}
			rows = append(rows, row)
			stats.Kept++
		}
	}
	return rows, stats, nil
}

func mapGame(g models.RawGame, dayDate string) models.GameRow {
	date := firstNonEmpty(g.OfficialDate, g.GameDate, dayDate)
	status := firstNonEmpty(g.Status.DetailedState, g.Status.AbstractGameState)

	row := models.GameRow{
		ExternalGameID:     *g.GamePk,
		Date:               date,
		Status:             models.StringPtr(status),
		ScheduledStartTime: models.StringPtr(g.GameDate),
		OfficialStartTime:  models.StringPtr(g.OfficialStartTime),
	}
	if g.Venue != nil {
		row.Location = models.StringPtr(g.Venue.Name)
	}
	if g.Teams.Home != nil && g.Teams.Home.Team != nil {
		row.HomeTeamExternalID = g.Teams.Home.Team.ID
	}
	if g.Teams.Away != nil && g.Teams.Away.Team != nil {
		row.AwayTeamExternalID = g.Teams.Away.Team.ID
	}
	return row
}

func seasonYearOf(g models.RawGame, date string) int {
	if y, err := strconv.Atoi(strings.TrimSpace(g.Season)); err == nil && y > 0 {
		return y
	}
	if len(date) >= 4 {
		if y, err := strconv.Atoi(date[:4]); err == nil {
			return y
		}
	}
	return 0
}

// BuildSeasons returns one row per year in [start, endInclusive]
func BuildSeasons(start, endInclusive int) []models.SeasonRow {
	if endInclusive < start {
		return nil
	}
	rows := make([]models.SeasonRow, 0, endInclusive-start+1)
	for y := start; y <= endInclusive; y++ {
		rows = append(rows, models.SeasonRow{Year: y})
	}
	return rows
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
