package main

import (
	"context"

	"github.com/JL037/mlbtracker/internal/bridge"
	"github.com/JL037/mlbtracker/internal/cache"
	"github.com/JL037/mlbtracker/internal/client"
	"github.com/JL037/mlbtracker/internal/config"
	"github.com/JL037/mlbtracker/internal/loader"
	"github.com/JL037/mlbtracker/internal/pipeline"
	"github.com/JL037/mlbtracker/internal/repository"
	"github.com/JL037/mlbtracker/internal/repository/memory"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
)

// runner is the pipeline surface the commands drive
type runner interface {
	Bootstrap(ctx context.Context) (pipeline.BootstrapSummary, error)
	Season(ctx context.Context, year int) (pipeline.LoadSummary, error)
	Daily(ctx context.Context) (pipeline.LoadSummary, error)
}

type store interface {
	loader.Store
	bridge.Lookup
}

// app is everything one command invocation needs
type app struct {
	cfg    *config.Config
	runner runner
	health func(ctx context.Context) error
	close  func()
}

type healthCheck struct {
	name  string
	check func(ctx context.Context) error
}

// combineHealth runs every check in order and fails on the first error
func combineHealth(checks ...healthCheck) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		for _, hc := range checks {
			if err := hc.check(ctx); err != nil {
				return errors.Wrapf(err, "%s unhealthy", hc.name)
			}
		}
		return nil
	}
}

// buildApp is swapped out in tests
var buildApp = newApp

func newApp(ctx context.Context, dryRun bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("env", cfg.AppEnv).
		Bool("dry_run", dryRun).
		Msg("Configuration loaded")

	var (
		closers []func()
		checks  []healthCheck
	)
	a := &app{
		cfg: cfg,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}

	opts := client.Options{
		BaseURL:      cfg.MLBBaseURL,
		Timeout:      cfg.MLBTimeout,
		MaxAttempts:  cfg.MLBMaxAttempts,
		RetryBase:    cfg.MLBRetryBase,
		WindowDays:   cfg.ScheduleWindowDays,
		TeamsSportID: cfg.TeamsSportID,
		RateLimit:    cfg.APIRateLimit,
		Burst:        cfg.APIBurstLimit,
		DebugRaw:     cfg.DebugRaw,
		DebugRawDir:  cfg.DebugRawDir,
		TeamsTTL:     cfg.TeamsCacheTTL(),
		ScheduleTTL:  cfg.ScheduleCacheTTL(),
	}

	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(ctx, cache.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			opts.Cache = redisCache
			closers = append(closers, func() { _ = redisCache.Close() })
			checks = append(checks, healthCheck{name: "redis", check: redisCache.HealthCheck})
			log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
		}
	}

	var st store
	if dryRun {
		st = memory.NewStore()
		log.Info().Msg("Dry run: writing to an in-memory store")
	} else {
		if err := cfg.RequireDatabase(); err != nil {
			a.close()
			return nil, err
		}
		db, err := repository.NewDatabase(ctx, cfg.DatabaseDSN())
		if err != nil {
			a.close()
			return nil, err
		}
		closers = append(closers, db.Close)
		checks = append(checks, healthCheck{name: "database", check: db.Health})
		st = db
	}
	a.health = combineHealth(checks...)

	a.runner = pipeline.New(
		client.NewClient(opts),
		st,
		loader.New(st, cfg.LoadChunkSize),
		pipeline.Options{
			SeasonStartYear: cfg.SeasonStartYear,
			MinTeams:        cfg.MinTeams,
			DailyBackDays:   cfg.DailyBackDays,
			DailyAheadDays:  cfg.DailyAheadDays,
		},
	)
	return a, nil
}
