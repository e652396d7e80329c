// Package pipeline sequences fetch, transform, bridge and load per command.
package pipeline

import (
	"context"
	"time"

	"github.com/JL037/mlbtracker/internal/bridge"
	"github.com/JL037/mlbtracker/internal/loader"
	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/models"
	"github.com/JL037/mlbtracker/internal/transform"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FirstMLBSeason is the earliest year a season load accepts
const FirstMLBSeason = 1876

var (
	// ErrTooFewTeams is returned when bootstrap sees fewer clubs than expected
	ErrTooFewTeams = errors.New("too few teams")

	// ErrInvalidYear is returned for a season outside the supported range
	ErrInvalidYear = errors.New("invalid season year")
)

// Fetcher is the upstream side of the pipeline
type Fetcher interface {
	FetchTeams(ctx context.Context, activeOnly bool) ([]models.RawTeam, error)
	FetchSeasonSchedule(ctx context.Context, year int) ([]models.RawScheduleDay, error)
	FetchScheduleRange(ctx context.Context, start, end time.Time) ([]models.RawScheduleDay, error)
}

// Options holds the driver settings
type Options struct {
	SeasonStartYear int
	MinTeams        int
	DailyBackDays   int
	DailyAheadDays  int
}

// Pipeline runs the bootstrap, season and daily commands
type Pipeline struct {
	fetcher Fetcher
	lookup  bridge.Lookup
	loader  *loader.Loader
	opts    Options
	clock   func() time.Time
}

// New creates a Pipeline
func New(fetcher Fetcher, lookup bridge.Lookup, ld *loader.Loader, opts Options) *Pipeline {
	return &Pipeline{
		fetcher: fetcher,
		lookup:  lookup,
		loader:  ld,
		opts:    opts,
		clock:   time.Now,
	}
}

// WithClock overrides the time source
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// BootstrapSummary reports a bootstrap run
type BootstrapSummary struct {
	RunID           string
	TeamsFetched    int
	TeamsUpserted   int
	FirstSeason     int
	LastSeason      int
	SeasonsBuilt    int
	SeasonsExpected int
	SeasonsUpserted int
}

// LoadSummary reports a season or daily run
type LoadSummary struct {
	RunID          string
	Year           int
	Start          time.Time
	End            time.Time
	Days           int
	GamesFetched   int
	Mapped         int
	FilteredByType int
	Rejected       int
	Load           loader.GameLoadResult
}

// Bootstrap upserts active teams and the seasons from SeasonStartYear to this year
func (p *Pipeline) Bootstrap(ctx context.Context) (summary BootstrapSummary, err error) {
	logger, done := p.begin("bootstrap", &summary.RunID)
	defer func() { done(err) }()

	logger.Info().Msg("Fetching teams")
	raws, err := p.fetcher.FetchTeams(ctx, true)
	if err != nil {
		return summary, err
	}
	summary.TeamsFetched = len(raws)

	teams, err := transform.MapTeams(raws)
	if err != nil {
		return summary, err
	}
	if len(teams) < p.opts.MinTeams {
		return summary, errors.Wrapf(ErrTooFewTeams, "expected at least %d MLB teams, got %d", p.opts.MinTeams, len(teams))
	}

	summary.TeamsUpserted, err = p.loader.UpsertTeams(ctx, teams)
	if err != nil {
		return summary, err
	}
	logger.Info().Int("teams", summary.TeamsUpserted).Msg("Teams upserted")

	summary.FirstSeason = p.opts.SeasonStartYear
	summary.LastSeason = p.clock().Year()
	seasons := transform.BuildSeasons(summary.FirstSeason, summary.LastSeason)
	summary.SeasonsBuilt = len(seasons)
	summary.SeasonsExpected = summary.LastSeason - summary.FirstSeason + 1
	if summary.SeasonsBuilt != summary.SeasonsExpected {
		logger.Warn().
			Int("built", summary.SeasonsBuilt).
			Int("expected", summary.SeasonsExpected).
			Msg("Season count mismatch")
	}

	summary.SeasonsUpserted, err = p.loader.UpsertSeasons(ctx, seasons)
	if err != nil {
		return summary, err
	}
	logger.Info().
		Int("seasons", summary.SeasonsUpserted).
		Int("first", summary.FirstSeason).
		Int("last", summary.LastSeason).
		Msg("Seasons upserted")

	return summary, nil
}

// Season loads the regular-season schedule of one year
func (p *Pipeline) Season(ctx context.Context, year int) (summary LoadSummary, err error) {
	logger, done := p.begin("season", &summary.RunID)
	defer func() { done(err) }()

	summary.Year = year
	if maxYear := p.clock().Year() + 1; year < FirstMLBSeason || year > maxYear {
		return summary, errors.Wrapf(ErrInvalidYear, "%d is outside %d..%d", year, FirstMLBSeason, maxYear)
	}

	days, err := p.fetcher.FetchSeasonSchedule(ctx, year)
	if err != nil {
		return summary, err
	}
	summary.Start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	summary.End = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	err = p.load(ctx, logger, days, year, &summary)
	return summary, err
}

// Daily refreshes games in [today-DailyBackDays, today+DailyAheadDays].
// Each game binds to the season it belongs to.
func (p *Pipeline) Daily(ctx context.Context) (summary LoadSummary, err error) {
	logger, done := p.begin("daily", &summary.RunID)
	defer func() { done(err) }()

	now := p.clock().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	summary.Start = today.AddDate(0, 0, -p.opts.DailyBackDays)
	summary.End = today.AddDate(0, 0, p.opts.DailyAheadDays)

	logger.Info().
		Str("start", summary.Start.Format(time.DateOnly)).
		Str("end", summary.End.Format(time.DateOnly)).
		Msg("Refreshing games")

	days, err := p.fetcher.FetchScheduleRange(ctx, summary.Start, summary.End)
	if err != nil {
		return summary, err
	}

	err = p.load(ctx, logger, days, 0, &summary)
	return summary, err
}

func (p *Pipeline) load(ctx context.Context, logger zerolog.Logger, days []models.RawScheduleDay, year int, summary *LoadSummary) error {
	rows, stats, err := transform.MapGamesFromScheduleWithStats(days, year)
	summary.Days = stats.Days
	summary.GamesFetched = stats.Games
	summary.FilteredByType = stats.FilteredByType
	if err != nil {
		return err
	}
	summary.Mapped = len(rows)

	logger.Info().
		Int("days", stats.Days).
		Int("games", stats.Games).
		Int("mapped", summary.Mapped).
		Msg("Schedule transformed")

	bound, rejected, err := bridge.BindGamesFKs(ctx, p.lookup, rows)
	if err != nil {
		return err
	}
	summary.Rejected = len(rejected)
	if summary.Rejected > 0 {
		logger.Warn().
			Int("rejected", summary.Rejected).
			Msg("Games skipped for missing season/team ids, run bootstrap first")
	}

	summary.Load, err = p.loader.UpsertGames(ctx, bound)
	if err != nil {
		return err
	}

	logger.Info().
		Int("written", summary.Load.Written).
		Int("skipped", summary.Load.Skipped).
		Int("duplicates", summary.Load.Duplicates).
		Int("chunks", summary.Load.Chunks).
		Msg("Games upserted")
	return nil
}

// begin tags a run with an id and returns a completion hook recording metrics
func (p *Pipeline) begin(kind string, runID *string) (zerolog.Logger, func(error)) {
	*runID = uuid.NewString()
	logger := log.With().Str("run_id", *runID).Str("command", kind).Logger()
	start := time.Now()

	return logger, func(err error) {
		duration := time.Since(start)
		if err != nil {
			metrics.RecordSync(kind, "error", duration.Seconds())
			metrics.RecordError("pipeline", kind)
			logger.Error().Err(err).Dur("duration", duration).Msg("Run failed")
			return
		}
		metrics.RecordSync(kind, "success", duration.Seconds())
		logger.Info().Dur("duration", duration).Msg("Run completed")
	}
}
