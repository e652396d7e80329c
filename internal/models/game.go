package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Game represents a persisted regular-season game
type Game struct {
	ID                 int64          `db:"id"`
	ExternalGameID     int64          `db:"game_id"`
	SeasonID           int64          `db:"season_id"`
	Date               time.Time      `db:"date"`
	Status             sql.NullString `db:"status"`
	Location           sql.NullString `db:"location"`
	ScheduledStartTime sql.NullTime   `db:"scheduled_start_time"`
	OfficialStartTime  sql.NullTime   `db:"official_start_time"`
	HomeTeamID         int64          `db:"home_team_id"`
	AwayTeamID         int64          `db:"away_team_id"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// RegularSeason is the Stats API gameType for regular-season games
const RegularSeason = "R"

// RawScheduleDay is one date bucket of GET /schedule
type RawScheduleDay struct {
	Date  string    `json:"date"`
	Games []RawGame `json:"games"`
}

// RawGame is a game object inside a schedule day
type RawGame struct {
	GamePk            *int64        `json:"gamePk,omitempty"`
	GameType          string        `json:"gameType"`
	Season            string        `json:"season"`
	OfficialDate      string        `json:"officialDate"`
	GameDate          string        `json:"gameDate"`
	OfficialStartTime string        `json:"officialStartTime"`
	Status            RawGameStatus `json:"status"`
	Venue             *RawVenue     `json:"venue,omitempty"`
	Teams             RawGameTeams  `json:"teams"`
}

// RawGameStatus carries both the coarse and the detailed game state
type RawGameStatus struct {
	AbstractGameState string `json:"abstractGameState"`
	DetailedState     string `json:"detailedState"`
}

// RawGameTeams holds the home/away sides of a game
type RawGameTeams struct {
	Home *RawGameSide `json:"home,omitempty"`
	Away *RawGameSide `json:"away,omitempty"`
}

// RawGameSide wraps the team reference of one side
type RawGameSide struct {
	Team *NamedRef `json:"team,omitempty"`
}

// GameRow is a transformed game still carrying upstream identifiers.
// A zero team external id means the upstream record had none.
type GameRow struct {
	ExternalGameID     int64
	Date               string
	Status             *string
	Location           *string
	SeasonYear         int
	ScheduledStartTime *string
	OfficialStartTime  *string
	HomeTeamExternalID int64
	AwayTeamExternalID int64
}

// BoundGameRow is a GameRow whose season and teams resolved to internal ids.
// Only the bridge constructs these.
type BoundGameRow struct {
	ExternalGameID     int64
	Date               string
	Status             *string
	Location           *string
	SeasonID           int64
	ScheduledStartTime *string
	OfficialStartTime  *string
	HomeTeamID         int64
	AwayTeamID         int64
}

// RejectReasonMissingFK marks rows whose season or teams could not be resolved
const RejectReasonMissingFK = "missing_fk"

// RejectedRow records a game the bridge could not bind
type RejectedRow struct {
	Reason             string
	ExternalGameID     int64
	SeasonYear         int
	HomeTeamExternalID int64
	AwayTeamExternalID int64
}

// ToGame converts a bound row to the persisted model, parsing date columns
func (b BoundGameRow) ToGame() (*Game, error) {
	date, err := ParseGameDate(b.Date)
	if err != nil {
		return nil, fmt.Errorf("game %d: %w", b.ExternalGameID, err)
	}
	scheduled, err := parseOptionalTimestamp(b.ScheduledStartTime)
	if err != nil {
		return nil, fmt.Errorf("game %d scheduled start: %w", b.ExternalGameID, err)
	}
	official, err := parseOptionalTimestamp(b.OfficialStartTime)
	if err != nil {
		return nil, fmt.Errorf("game %d official start: %w", b.ExternalGameID, err)
	}

	return &Game{
		ExternalGameID:     b.ExternalGameID,
		SeasonID:           b.SeasonID,
		Date:               date,
		Status:             NullString(b.Status),
		Location:           NullString(b.Location),
		ScheduledStartTime: scheduled,
		OfficialStartTime:  official,
		HomeTeamID:         b.HomeTeamID,
		AwayTeamID:         b.AwayTeamID,
	}, nil
}

// ParseGameDate accepts a plain YYYY-MM-DD date or a full RFC 3339 timestamp
func ParseGameDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparseable game date %q", s)
	}
	return t.UTC().Truncate(24 * time.Hour), nil
}

func parseOptionalTimestamp(s *string) (sql.NullTime, error) {
	if s == nil || *s == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return sql.NullTime{}, fmt.Errorf("unparseable timestamp %q", *s)
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

// Status ranks used to pick the authoritative row among duplicates
const (
	RankUnknown    = 0
	RankPreGame    = 1
	RankDelayed    = 2
	RankInProgress = 3
	RankFinal      = 4
)

// statusFamilies is matched by case-insensitive prefix so upstream variants
// such as "Final: Tied" or "Delayed Start: Rain" keep their family rank.
var statusFamilies = []struct {
	prefix string
	rank   int
}{
	{"final", RankFinal},
	{"game over", RankFinal},
	{"completed early", RankFinal},
	{"in progress", RankInProgress},
	{"manager challenge", RankInProgress},
	{"review", RankInProgress},
	{"delayed", RankDelayed},
	{"suspended", RankDelayed},
	{"pre-game", RankPreGame},
	{"warmup", RankPreGame},
	{"scheduled", RankPreGame},
}

// StatusRank returns the rank of a detailed game state and whether it was recognized
func StatusRank(status *string) (int, bool) {
	if status == nil {
		return RankUnknown, false
	}
	s := strings.ToLower(strings.TrimSpace(*status))
	if s == "" {
		return RankUnknown, false
	}
	for _, f := range statusFamilies {
		if strings.HasPrefix(s, f.prefix) {
			return f.rank, true
		}
	}
	return RankUnknown, false
}

// HasOfficialStart reports whether the row carries a non-empty official start time
func (b BoundGameRow) HasOfficialStart() bool {
	return b.OfficialStartTime != nil && *b.OfficialStartTime != ""
}

// ScheduledStart returns the scheduled start or "" when absent
func (b BoundGameRow) ScheduledStart() string {
	if b.ScheduledStartTime == nil {
		return ""
	}
	return *b.ScheduledStartTime
}
