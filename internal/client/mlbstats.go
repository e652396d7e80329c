package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/JL037/mlbtracker/internal/metrics"
	"github.com/JL037/mlbtracker/internal/models"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public MLB Stats API endpoint
	DefaultBaseURL = "https://statsapi.mlb.com/api/v1"

	endpointTeams    = "teams"
	endpointSchedule = "schedule"

	dateLayout   = "2006-01-02"
	maxBodyInErr = 400
)

// ErrRetriesExhausted marks a request that kept failing with a transient error
var ErrRetriesExhausted = errors.New("retries exhausted")

// APIError is a non-retryable HTTP failure from the Stats API
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > maxBodyInErr {
		body = body[:maxBodyInErr]
	}
	return fmt.Sprintf("API returned status %d for %s: %s", e.StatusCode, e.URL, body)
}

// Retryable reports whether the status is one the client retries
func (e *APIError) Retryable() bool {
	return retryableStatus(e.StatusCode)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// ResponseCache stores raw response bodies keyed by request URL
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configures a Client
type Options struct {
	BaseURL      string
	Timeout      time.Duration
	MaxAttempts  int
	RetryBase    time.Duration
	WindowDays   int
	TeamsSportID int

	RateLimit float64
	Burst     int

	DebugRaw    bool
	DebugRawDir string

	Cache       ResponseCache
	TeamsTTL    time.Duration
	ScheduleTTL time.Duration

	HTTPClient *http.Client
}

// Client is the MLB Stats API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxAttempts  int
	retryBase    time.Duration
	windowDays   int
	teamsSportID int

	debugRaw    bool
	debugRawDir string

	cache       ResponseCache
	teamsTTL    time.Duration
	scheduleTTL time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryBase is the first backoff step; attempt n waits n times this
const DefaultRetryBase = 1500 * time.Millisecond

// NewClient creates a new Stats API client, filling unset options with defaults
func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 28
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = DefaultRetryBase
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		limiter:      rate.NewLimiter(limit, burst),
		maxAttempts:  opts.MaxAttempts,
		retryBase:    opts.RetryBase,
		windowDays:   opts.WindowDays,
		teamsSportID: opts.TeamsSportID,
		debugRaw:     opts.DebugRaw,
		debugRawDir:  opts.DebugRawDir,
		cache:        opts.Cache,
		teamsTTL:     opts.TeamsTTL,
		scheduleTTL:  opts.ScheduleTTL,
		sleep:        sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs a GET request with linear backoff on 429, 5xx and transport failures
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, ttl time.Duration) ([]byte, error) {
	reqURL := c.baseURL + "/" + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	if body, ok := c.cached(ctx, reqURL, ttl); ok {
		return body, nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.retryBase * time.Duration(attempt-1)
			log.Info().
				Str("url", reqURL).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")
			metrics.RecordAPIRetry(endpoint)

			if err := c.sleep(ctx, backoff); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "rate limiter")
		}

		body, err := c.do(ctx, endpoint, reqURL, attempt)
		if err == nil {
			c.store(ctx, reqURL, body, ttl)
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return nil, err
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("url", reqURL).
			Int("attempt", attempt).
			Msg("Received retryable error")
	}

	return nil, errors.Mark(
		errors.Wrapf(lastErr, "GET %s failed after %d attempts", reqURL, c.maxAttempts),
		ErrRetriesExhausted,
	)
}

// do issues a single attempt and classifies the outcome
func (c *Client) do(ctx context.Context, endpoint, reqURL string, attempt int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mlbtracker-etl/1.0")

	log.Debug().
		Str("url", reqURL).
		Int("attempt", attempt).
		Msg("Making API request")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "transport_error", time.Since(start).Seconds())
		return nil, errors.Wrap(err, "API request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{StatusCode: resp.StatusCode, URL: reqURL, Body: string(body)}
	}

	log.Debug().
		Str("url", reqURL).
		Int("status", resp.StatusCode).
		Int("size", len(body)).
		Msg("API request successful")
	return body, nil
}

func (c *Client) cached(ctx context.Context, key string, ttl time.Duration) ([]byte, bool) {
	if c.cache == nil || ttl <= 0 {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Response cache read failed")
		return nil, false
	}
	if !ok {
		metrics.RecordCacheMiss()
		return nil, false
	}
	metrics.RecordCacheHit()
	return body, true
}

func (c *Client) store(ctx context.Context, key string, body []byte, ttl time.Duration) {
	if c.cache == nil || ttl <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, body, ttl); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Response cache write failed")
	}
}

type teamsEnvelope struct {
	Teams []models.RawTeam `json:"teams"`
}

type scheduleEnvelope struct {
	Dates []models.RawScheduleDay `json:"dates"`
}

// FetchTeams fetches all teams, optionally restricted to active clubs
func (c *Client) FetchTeams(ctx context.Context, activeOnly bool) ([]models.RawTeam, error) {
	params := url.Values{}
	if activeOnly {
		params.Set("activeStatus", "yes")
	}
	if c.teamsSportID > 0 {
		params.Set("sportId", strconv.Itoa(c.teamsSportID))
	}

	body, err := c.get(ctx, endpointTeams, "teams", params, c.teamsTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch teams")
	}
	c.dumpRaw("teams.json", body)

	var payload teamsEnvelope
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal teams")
	}

	log.Debug().Int("count", len(payload.Teams)).Msg("Teams fetched")
	return payload.Teams, nil
}

// FetchSeasonSchedule fetches the regular-season schedule for a calendar year
func (c *Client) FetchSeasonSchedule(ctx context.Context, year int) ([]models.RawScheduleDay, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	return c.FetchScheduleRange(ctx, start, end)
}

// FetchScheduleRange fetches an inclusive date range, one request per window,
// and returns the day buckets in chronological order
func (c *Client) FetchScheduleRange(ctx context.Context, start, end time.Time) ([]models.RawScheduleDay, error) {
	var days []models.RawScheduleDay
	for _, w := range ScheduleWindows(start, end, c.windowDays) {
		batch, err := c.fetchScheduleWindow(ctx, w)
		if err != nil {
			return nil, err
		}
		days = append(days, batch...)
	}
	return days, nil
}

func (c *Client) fetchScheduleWindow(ctx context.Context, w Window) ([]models.RawScheduleDay, error) {
	startDate := w.Start.Format(dateLayout)
	endDate := w.End.Format(dateLayout)

	params := url.Values{}
	params.Set("sportId", "1")
	params.Set("startDate", startDate)
	params.Set("endDate", endDate)
	params.Set("gameTypes", models.RegularSeason)

	body, err := c.get(ctx, endpointSchedule, "schedule", params, c.scheduleTTL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch schedule %s..%s", startDate, endDate)
	}
	c.dumpRaw(fmt.Sprintf("schedule_%s_%s.json", startDate, endDate), body)

	var payload scheduleEnvelope
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal schedule %s..%s", startDate, endDate)
	}

	log.Debug().
		Str("start", startDate).
		Str("end", endDate).
		Int("days", len(payload.Dates)).
		Msg("Schedule window fetched")
	return payload.Dates, nil
}

// dumpRaw writes an indented copy of a payload when DEBUG_RAW is on.
// Failures are logged only.
func (c *Client) dumpRaw(name string, body []byte) {
	if !c.debugRaw {
		return
	}
	if err := writeIndented(filepath.Join(c.debugRawDir, name), body); err != nil {
		log.Warn().Err(err).Str("file", name).Msg("Failed to write raw payload")
	}
}

func writeIndented(path string, body []byte) error {
	var v interface{}
	if err := sonic.Unmarshal(body, &v); err != nil {
		return err
	}
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}
