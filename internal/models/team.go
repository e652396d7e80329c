package models

import (
	"database/sql"
	"time"
)

// Team represents a persisted MLB club
type Team struct {
	ID           int64          `db:"id"`
	ExternalID   int64          `db:"team_id"`
	Name         string         `db:"name"`
	Abbreviation sql.NullString `db:"abbreviation"`
	Location     sql.NullString `db:"location"`
	League       sql.NullString `db:"league"`
	Division     sql.NullString `db:"division"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// NamedRef is the {"id", "name"} shape the Stats API uses for nested references
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RawVenue is the nested venue object on teams and games
type RawVenue struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	City string `json:"city"`
}

// RawTeam is a team object as returned by GET /teams
type RawTeam struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	LocationName string    `json:"locationName"`
	Active       bool      `json:"active"`
	League       *NamedRef `json:"league,omitempty"`
	Division     *NamedRef `json:"division,omitempty"`
	Venue        *RawVenue `json:"venue,omitempty"`
}

// TeamRow is a normalized team ready for upsert. Keyed on ExternalID.
type TeamRow struct {
	ExternalID   int64
	Name         string
	Abbreviation *string
	Location     *string
	League       *string
	Division     *string
}

// ToTeam converts a TeamRow to the persisted model shape
func (tr TeamRow) ToTeam() *Team {
	return &Team{
		ExternalID:   tr.ExternalID,
		Name:         tr.Name,
		Abbreviation: NullString(tr.Abbreviation),
		Location:     NullString(tr.Location),
		League:       NullString(tr.League),
		Division:     NullString(tr.Division),
	}
}

// NullString maps an optional string to sql.NullString
func NullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// StringPtr returns nil for an empty string
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
