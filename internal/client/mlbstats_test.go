package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string, opts Options) (*Client, *[]time.Duration) {
	t.Helper()

	opts.BaseURL = baseURL
	if opts.RetryBase == 0 {
		opts.RetryBase = 100 * time.Millisecond
	}
	c := NewClient(opts)

	var delays []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return c, &delays
}

func TestClient_RetriesServerErrorsUpToCeiling(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL, Options{})

	_, err := c.FetchTeams(context.Background(), true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRetriesExhausted), "Exhaustion should be marked")
	assert.Equal(t, int32(5), atomic.LoadInt32(&attempts), "Should make exactly 5 attempts")

	require.Len(t, *delays, 4, "Should back off between each of the 4 retries")
	for i := 1; i < len(*delays); i++ {
		assert.Greater(t, (*delays)[i], (*delays)[i-1], "Backoff should grow attempt over attempt")
	}
	assert.Equal(t, 100*time.Millisecond, (*delays)[0])
	assert.Equal(t, 400*time.Millisecond, (*delays)[3])
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(Options{})

	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, 5, c.maxAttempts)
	assert.Equal(t, 1500*time.Millisecond, c.retryBase, "Zero retry base would retry with no delay")
}

func TestClient_RetriesTooManyRequestsThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"teams":[{"id":147,"name":"New York Yankees"}]}`))
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL, Options{})

	teams, err := c.FetchTeams(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	assert.Equal(t, int64(147), teams[0].ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Len(t, *delays, 2)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Object not found"}`))
	}))
	defer srv.Close()

	c, delays := newTestClient(t, srv.URL, Options{})

	_, err := c.FetchTeams(context.Background(), true)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "Should surface an APIError")
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "Object not found", "Body should be kept for diagnostics")
	assert.False(t, errors.Is(err, ErrRetriesExhausted))
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "404 must not be retried")
	assert.Empty(t, *delays)
}

func TestAPIError_TruncatesBody(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := &APIError{StatusCode: 400, URL: "http://example/teams", Body: string(long)}

	assert.Less(t, len(err.Error()), 500)
	assert.Contains(t, err.Error(), "status 400")
}

func TestClient_FetchTeamsQuery(t *testing.T) {
	var gotPath, gotActive, gotSport string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotActive = r.URL.Query().Get("activeStatus")
		gotSport = r.URL.Query().Get("sportId")
		_, _ = w.Write([]byte(`{"teams":[]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Options{})
	_, err := c.FetchTeams(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, "/teams", gotPath)
	assert.Equal(t, "yes", gotActive)
	assert.Empty(t, gotSport, "sportId should be omitted by default")

	c, _ = newTestClient(t, srv.URL, Options{TeamsSportID: 1})
	_, err = c.FetchTeams(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, gotActive)
	assert.Equal(t, "1", gotSport)
}

func TestClient_FetchSeasonScheduleWindows(t *testing.T) {
	type call struct{ start, end string }
	var (
		mu    sync.Mutex
		calls []call
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/schedule", r.URL.Path)
		assert.Equal(t, "1", q.Get("sportId"))
		assert.Equal(t, "R", q.Get("gameTypes"))

		mu.Lock()
		calls = append(calls, call{q.Get("startDate"), q.Get("endDate")})
		mu.Unlock()

		_, _ = w.Write([]byte(`{"dates":[{"date":"` + q.Get("startDate") + `","games":[]}]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL, Options{})
	days, err := c.FetchSeasonSchedule(context.Background(), 2023)
	require.NoError(t, err)

	require.NotEmpty(t, calls)
	assert.Equal(t, "2023-01-01", calls[0].start)
	assert.Equal(t, "2023-12-31", calls[len(calls)-1].end)
	require.Len(t, days, len(calls), "One day bucket per window from the fake")

	for i, cl := range calls {
		start, err := time.Parse(dateLayout, cl.start)
		require.NoError(t, err)
		end, err := time.Parse(dateLayout, cl.end)
		require.NoError(t, err)

		span := int(end.Sub(start).Hours()/24) + 1
		assert.LessOrEqual(t, span, 28, "Window %d spans too many days", i)
		if i > 0 {
			prevEnd, _ := time.Parse(dateLayout, calls[i-1].end)
			assert.Equal(t, prevEnd.AddDate(0, 0, 1), start, "Windows should be contiguous")
		}
		assert.Equal(t, cl.start, days[i].Date, "Days should stay in chronological order")
	}
}

func TestScheduleWindows(t *testing.T) {
	start := time.Date(2024, time.March, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)

	windows := ScheduleWindows(start, end, 28)
	require.Len(t, windows, 3)
	assert.Equal(t, "2024-03-01", windows[0].Start.Format(dateLayout))
	assert.Equal(t, "2024-03-28", windows[0].End.Format(dateLayout))
	assert.Equal(t, "2024-03-29", windows[1].Start.Format(dateLayout))
	assert.Equal(t, "2024-04-25", windows[1].End.Format(dateLayout))
	assert.Equal(t, "2024-04-26", windows[2].Start.Format(dateLayout))
	assert.Equal(t, "2024-04-30", windows[2].End.Format(dateLayout))

	assert.Len(t, ScheduleWindows(end, end, 28), 1, "Single day range is one window")
	assert.Empty(t, ScheduleWindows(end, start, 28), "Inverted range has no windows")
}

func TestClient_DebugRawDump(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"teams":[{"id":121,"name":"New York Mets"}]}`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, _ := newTestClient(t, srv.URL, Options{DebugRaw: true, DebugRawDir: dir})

	_, err := c.FetchTeams(context.Background(), true)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "teams.json"))
	require.NoError(t, err, "Raw payload should be dumped")
	assert.Contains(t, string(data), "New York Mets")
	assert.Contains(t, string(data), "\n  ", "Dump should be indented")
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestClient_ResponseCache(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_, _ = w.Write([]byte(`{"teams":[{"id":111,"name":"Boston Red Sox"}]}`))
	}))
	defer srv.Close()

	cache := &memCache{data: map[string][]byte{}}
	c, _ := newTestClient(t, srv.URL, Options{Cache: cache, TeamsTTL: time.Hour})

	for i := 0; i < 2; i++ {
		teams, err := c.FetchTeams(context.Background(), true)
		require.NoError(t, err)
		require.Len(t, teams, 1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts), "Second call should be served from cache")
	assert.Len(t, cache.data, 1)
}
