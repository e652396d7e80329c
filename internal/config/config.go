package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// MLB Stats API
	MLBBaseURL         string        `envconfig:"MLB_API_BASE" default:"https://statsapi.mlb.com/api/v1" validate:"required,url"`
	MLBTimeout         time.Duration `envconfig:"MLB_API_TIMEOUT" default:"30s" validate:"gt=0"`
	MLBMaxAttempts     int           `envconfig:"MLB_API_MAX_ATTEMPTS" default:"5" validate:"min=1,max=20"`
	MLBRetryBase       time.Duration `envconfig:"MLB_API_RETRY_BASE" default:"1500ms" validate:"gt=0"`
	ScheduleWindowDays int           `envconfig:"MLB_SCHEDULE_WINDOW_DAYS" default:"28" validate:"min=1,max=31"`
	TeamsSportID       int           `envconfig:"MLB_TEAMS_SPORT_ID" default:"0" validate:"gte=0"`

	// API Rate Limiting (requests per second)
	APIRateLimit  float64 `envconfig:"API_RATE_LIMIT" default:"10" validate:"gt=0"`
	APIBurstLimit int     `envconfig:"API_BURST_LIMIT" default:"5" validate:"min=1"`

	// Diagnostics
	DebugRaw    bool   `envconfig:"DEBUG_RAW" default:"false"`
	DebugRawDir string `envconfig:"DEBUG_RAW_DIR" default:"/tmp/mlb_raw"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432" validate:"min=1,max=65535"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"mlbtracker"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"mlb_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable" validate:"oneof=disable allow prefer require verify-ca verify-full"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Caching TTL (in seconds)
	CacheEnabled     bool `envconfig:"CACHE_ENABLED" default:"false"`
	CacheTTLTeams    int  `envconfig:"CACHE_TTL_TEAMS" default:"86400"` // 24 hours
	CacheTTLSchedule int  `envconfig:"CACHE_TTL_SCHEDULE" default:"300"` // 5 minutes

	// Pipeline
	LoadChunkSize   int `envconfig:"LOAD_CHUNK_SIZE" default:"500" validate:"min=1"`
	SeasonStartYear int `envconfig:"SEASON_START_YEAR" default:"2016" validate:"min=1876"`
	MinTeams        int `envconfig:"MIN_TEAMS" default:"30" validate:"gte=0"`
	DailyBackDays   int `envconfig:"DAILY_BACK_DAYS" default:"1" validate:"gte=0"`
	DailyAheadDays  int `envconfig:"DAILY_AHEAD_DAYS" default:"1" validate:"gte=0"`

	// Scheduler
	DailyRefreshCron     string `envconfig:"DAILY_REFRESH_CRON" default:"0 6 * * *"`
	BootstrapRefreshCron string `envconfig:"BOOTSTRAP_REFRESH_CRON" default:"0 2 * * 1"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.IsProduction() && c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required in production")
	}

	return nil
}

// RequireDatabase checks the settings needed to open a database connection
func (c *Config) RequireDatabase() error {
	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection URL with credentials escaped
func (c *Config) DatabaseDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:     net.JoinHostPort(c.DatabaseHost, strconv.Itoa(c.DatabasePort)),
		Path:     "/" + c.DatabaseName,
		RawQuery: url.Values{"sslmode": {c.DatabaseSSLMode}}.Encode(),
	}
	return u.String()
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// TeamsCacheTTL returns the cache lifetime for team payloads
func (c *Config) TeamsCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLTeams) * time.Second
}

// ScheduleCacheTTL returns the cache lifetime for schedule payloads
func (c *Config) ScheduleCacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSchedule) * time.Second
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
