package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Database holds the database connection pool and provides access to repositories
type Database struct {
	Pool *pgxpool.Pool

	// Repositories
	Teams   *TeamRepository
	Seasons *SeasonRepository
	Games   *GameRepository
}

// NewDatabase creates a new database connection pool and initializes repositories
func NewDatabase(ctx context.Context, dsn string) (*Database, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// The pipeline is sequential, a small pool is enough
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Uint16("port", poolConfig.ConnConfig.Port).
		Str("database", poolConfig.ConnConfig.Database).
		Msg("Successfully connected to database")

	db := &Database{
		Pool: pool,
	}

	db.Teams = &TeamRepository{db: db}
	db.Seasons = &SeasonRepository{db: db}
	db.Games = &GameRepository{db: db}

	return db, nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Info().Msg("Database connection pool closed")
	}
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// PoolStats returns database pool statistics and publishes them as gauges
func (db *Database) PoolStats() map[string]interface{} {
	stat := db.Pool.Stat()
	metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())
	return map[string]interface{}{
		"total_conns":    stat.TotalConns(),
		"acquired_conns": stat.AcquiredConns(),
		"idle_conns":     stat.IdleConns(),
		"max_conns":      stat.MaxConns(),
	}
}

// UpsertTeams implements loader.Store
func (db *Database) UpsertTeams(ctx context.Context, rows []models.TeamRow) (int, error) {
	return db.Teams.UpsertBatch(ctx, rows)
}

// UpsertSeasons implements loader.Store
func (db *Database) UpsertSeasons(ctx context.Context, rows []models.SeasonRow) (int, error) {
	return db.Seasons.UpsertBatch(ctx, rows)
}

// UpsertGameChunk implements loader.Store
func (db *Database) UpsertGameChunk(ctx context.Context, rows []models.BoundGameRow) (int, error) {
	return db.Games.UpsertChunk(ctx, rows)
}

// SeasonIDsByYear implements bridge.Lookup
func (db *Database) SeasonIDsByYear(ctx context.Context) (map[int]int64, error) {
	return db.Seasons.IDsByYear(ctx)
}

// TeamIDsByExternalID implements bridge.Lookup
func (db *Database) TeamIDsByExternalID(ctx context.Context) (map[int64]int64, error) {
	return db.Teams.ExternalIDMap(ctx)
}

// execBatch drains a batch result and sums the affected rows
func execBatch(br pgx.BatchResults, n int) (int, error) {
	affected := 0
	for i := 0; i < n; i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("batch statement %d: %w", i, err)
		}
		affected += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return 0, err
	}
	return affected, nil
}
