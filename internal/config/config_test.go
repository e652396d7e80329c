package config

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://statsapi.mlb.com/api/v1", cfg.MLBBaseURL)
	assert.Equal(t, 30*time.Second, cfg.MLBTimeout)
	assert.Equal(t, 5, cfg.MLBMaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.MLBRetryBase)
	assert.Equal(t, 28, cfg.ScheduleWindowDays)
	assert.Equal(t, 500, cfg.LoadChunkSize)
	assert.Equal(t, 2016, cfg.SeasonStartYear)
	assert.Equal(t, 30, cfg.MinTeams)
	assert.Equal(t, "/tmp/mlb_raw", cfg.DebugRawDir)
	assert.False(t, cfg.DebugRaw)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("MLB_API_BASE", "http://localhost:8081/api/v1")
	t.Setenv("DEBUG_RAW", "true")
	t.Setenv("LOAD_CHUNK_SIZE", "250")
	t.Setenv("DAILY_BACK_DAYS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8081/api/v1", cfg.MLBBaseURL)
	assert.True(t, cfg.DebugRaw)
	assert.Equal(t, 250, cfg.LoadChunkSize)
	assert.Equal(t, 3, cfg.DailyBackDays)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOAD_CHUNK_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_RejectsZeroRetryBase(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("MLB_API_RETRY_BASE", "0s")

	_, err := Load()
	assert.Error(t, err, "Backoff must grow between attempts")
}

func TestValidate_ProductionRequiresPassword(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{
		DatabaseHost:     "db",
		DatabasePort:     5433,
		DatabaseUser:     "u",
		DatabasePassword: "p",
		DatabaseName:     "mlb",
		DatabaseSSLMode:  "disable",
	}

	assert.Equal(t, "postgres://u:p@db:5433/mlb?sslmode=disable", cfg.DatabaseDSN())
	assert.Error(t, (&Config{}).RequireDatabase())
	assert.NoError(t, cfg.RequireDatabase())
}

func TestDatabaseDSN_EscapesCredentials(t *testing.T) {
	cfg := &Config{
		DatabaseHost:     "db.internal",
		DatabasePort:     5432,
		DatabaseUser:     "mlb user",
		DatabasePassword: "p@ss/w#rd?%",
		DatabaseName:     "mlbtracker",
		DatabaseSSLMode:  "require",
	}

	parsed, err := pgconn.ParseConfig(cfg.DatabaseDSN())
	require.NoError(t, err)
	assert.Equal(t, "db.internal", parsed.Host)
	assert.Equal(t, uint16(5432), parsed.Port)
	assert.Equal(t, "mlb user", parsed.User)
	assert.Equal(t, "p@ss/w#rd?%", parsed.Password)
	assert.Equal(t, "mlbtracker", parsed.Database)
}

func TestCacheTTLs(t *testing.T) {
	cfg := &Config{CacheTTLTeams: 60, CacheTTLSchedule: 5, RedisHost: "cache", RedisPort: 6380}

	assert.Equal(t, time.Minute, cfg.TeamsCacheTTL())
	assert.Equal(t, 5*time.Second, cfg.ScheduleCacheTTL())
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}
