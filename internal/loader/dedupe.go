package loader

import (
	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/models"
)

// Dedupe keeps one row per external game id. Rows are merged pairwise in input
// order and the survivor takes the position of the first occurrence.
func Dedupe(rows []models.BoundGameRow) []models.BoundGameRow {
	pos := make(map[int64]int, len(rows))
	out := make([]models.BoundGameRow, 0, len(rows))

	for _, r := range rows {
		i, seen := pos[r.ExternalGameID]
		if !seen {
			pos[r.ExternalGameID] = len(out)
			out = append(out, r)
			continue
		}
		if Prefer(r, out[i]) {
			out[i] = r
		}
	}
	return out
}

// Prefer reports whether challenger should replace current. Higher status rank
// wins, then presence of an official start, then the later scheduled start.
// A full tie keeps current.
func Prefer(challenger, current models.BoundGameRow) bool {
	cr := rank(challenger.Status)
	ur := rank(current.Status)
	if cr != ur {
		return cr > ur
	}

	co := challenger.HasOfficialStart()
	uo := current.HasOfficialStart()
	if co != uo {
		return co
	}

	return challenger.ScheduledStart() > current.ScheduledStart()
}

func rank(status *string) int {
	r, known := models.StatusRank(status)
	if !known && status != nil && *status != "" {
		metrics.RecordUnknownStatus(*status)
	}
	return r
}
