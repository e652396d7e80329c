// Package memory is an in-process store with the same conflict rules as the
// Postgres repositories. It backs --dry-run and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JL037/mlbtracker/internal/models"
)

// Store holds teams, seasons and games in maps keyed by their natural keys.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	nextID int64
	now    func() time.Time

	teams   map[int64]models.Team
	seasons map[int]models.Season
	games   map[int64]models.Game

	// GameChunks counts committed game transactions
	GameChunks int
}

// NewStore returns an empty store stamping rows with the wall clock
func NewStore() *Store {
	return &Store{
		now:     time.Now,
		teams:   make(map[int64]models.Team),
		seasons: make(map[int]models.Season),
		games:   make(map[int64]models.Game),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// UpsertTeams inserts new teams and updates name, abbreviation, location and
// league of existing ones. Division is only set on insert.
func (s *Store) UpsertTeams(_ context.Context, rows []models.TeamRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, r := range rows {
		incoming := r.ToTeam()
		existing, ok := s.teams[r.ExternalID]
		if !ok {
			incoming.ID = s.id()
			incoming.CreatedAt = now
			incoming.UpdatedAt = now
			s.teams[r.ExternalID] = *incoming
			continue
		}
		existing.Name = incoming.Name
		existing.Abbreviation = incoming.Abbreviation
		existing.Location = incoming.Location
		existing.League = incoming.League
		existing.UpdatedAt = now
		s.teams[r.ExternalID] = existing
	}
	return len(rows), nil
}

// UpsertSeasons inserts missing years and returns how many rows were submitted
func (s *Store) UpsertSeasons(_ context.Context, rows []models.SeasonRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		if _, ok := s.seasons[r.Year]; ok {
			continue
		}
		s.seasons[r.Year] = models.Season{ID: s.id(), Year: r.Year, CreatedAt: s.now()}
	}
	return len(rows), nil
}

// UpsertGameChunk applies every row or none of them
func (s *Store) UpsertGameChunk(_ context.Context, rows []models.BoundGameRow) (int, error) {
	staged := make([]*models.Game, 0, len(rows))
	for _, r := range rows {
		g, err := r.ToGame()
		if err != nil {
			return 0, err
		}
		staged = append(staged, g)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, g := range staged {
		if existing, ok := s.games[g.ExternalGameID]; ok {
			g.ID = existing.ID
			g.CreatedAt = existing.CreatedAt
		} else {
			g.ID = s.id()
			g.CreatedAt = now
		}
		g.UpdatedAt = now
		s.games[g.ExternalGameID] = *g
	}
	s.GameChunks++
	return len(staged), nil
}

// SeasonIDsByYear returns year -> internal season id
func (s *Store) SeasonIDsByYear(_ context.Context) (map[int]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int]int64, len(s.seasons))
	for year, season := range s.seasons {
		out[year] = season.ID
	}
	return out, nil
}

// TeamIDsByExternalID returns external team id -> internal team id
func (s *Store) TeamIDsByExternalID(_ context.Context) (map[int64]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]int64, len(s.teams))
	for ext, team := range s.teams {
		out[ext] = team.ID
	}
	return out, nil
}

// Teams returns all teams ordered by external id
func (s *Store) Teams() []models.Team {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalID < out[j].ExternalID })
	return out
}

// Seasons returns all seasons ordered by year
func (s *Store) Seasons() []models.Season {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Season, 0, len(s.seasons))
	for _, season := range s.seasons {
		out = append(out, season)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Games returns all games ordered by external id
func (s *Store) Games() []models.Game {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Game, 0, len(s.games))
	for _, g := range s.games {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalGameID < out[j].ExternalGameID })
	return out
}

// Game looks up a game by external id
func (s *Store) Game(externalGameID int64) (models.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[externalGameID]
	return g, ok
}

// Team looks up a team by external id
func (s *Store) Team(externalID int64) (models.Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.teams[externalID]
	return t, ok
}
