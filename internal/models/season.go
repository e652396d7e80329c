package models

import "time"

// Season is a persisted season row
type Season struct {
	ID        int64     `db:"id"`
	Year      int       `db:"year"`
	CreatedAt time.Time `db:"created_at"`
}

// SeasonRow is a season ready for upsert. Seasons are immutable once created.
type SeasonRow struct {
	Year int
}
