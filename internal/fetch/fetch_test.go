package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verify-cli/internal/resilience"
)

func testOptions() Options {
	return Options{
		UserAgent: "test-agent",
		Retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
			Multiplier:     2.0,
		},
		RequestsPerSecond: 1000,
	}
}

func TestFetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("article body"))
	}))
	defer srv.Close()

	f := New(testOptions(), nil)
	content, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "article body", content)
}

func TestFetch_ForbiddenFallsBackToAlternateIdentity(t *testing.T) {
	var agents []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		if r.Header.Get("User-Agent") == "test-agent" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("let in"))
	}))
	defer srv.Close()

	f := New(testOptions(), nil)
	content, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "let in", content)
	require.Len(t, agents, 2)
	assert.Equal(t, "test-agent", agents[0])
	assert.Equal(t, DefaultFallbackUserAgent, agents[1])
}

func TestFetch_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := New(testOptions(), nil)
	content, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, int64(3), hits.Load())
}

func TestFetch_ExhaustionSurfacesFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New(testOptions(), nil)
	_, err := f.Fetch(context.Background(), srv.URL)

	require.Error(t, err)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, srv.URL, fe.URL)
}

func TestFetch_CacheHitSkipsNetwork(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	f := New(testOptions(), nil)

	first, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	second, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load())
}

func TestFetch_EmptyURL(t *testing.T) {
	f := New(testOptions(), nil)
	_, err := f.Fetch(context.Background(), "")
	require.Error(t, err)
}

func TestMemoryCache_PutGetClear(t *testing.T) {
	c := NewMemoryCache()

	_, ok := c.Get("http://a")
	assert.False(t, ok)

	c.Put("http://a", "body")
	got, ok := c.Get("http://a")
	require.True(t, ok)
	assert.Equal(t, "body", got)

	c.Clear()
	_, ok = c.Get("http://a")
	assert.False(t, ok)
}
