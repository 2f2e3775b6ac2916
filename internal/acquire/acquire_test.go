package acquire

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterSpacesRequests(t *testing.T) {
	l := NewLimiter(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Wait(ctx))
	}
	// first token is free, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestLimiterSetDelayOnlyWidens(t *testing.T) {
	l := NewLimiter(time.Second)
	l.SetDelay(100 * time.Millisecond)
	assert.Equal(t, time.Second, l.Delay())
	l.SetDelay(2 * time.Second)
	assert.Equal(t, 2*time.Second, l.Delay())
}

func TestLimiterHonoursContext(t *testing.T) {
	l := NewLimiter(time.Hour)
	require.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, l.Wait(ctx))
}

func newSite(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		fmt.Fprint(w, "hello")
	})
	mux.HandleFunc("/private/page", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		fmt.Fprint(w, "secret")
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcherCachesAndRespectsRobots(t *testing.T) {
	var hits int32
	srv := newSite(t, &hits)
	f := NewFetcher(FetcherOptions{UserAgent: "test-agent", CacheTTL: time.Minute, RespectRobots: true})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		body, err := f.Get(ctx, srv.URL+"/page")
		require.NoError(t, err)
		assert.Equal(t, "hello", string(body))
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second fetch must come from cache")

	_, err := f.Get(ctx, srv.URL+"/private/page")
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	_, err = f.Get(ctx, srv.URL+"/missing")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestFetcherWithoutRobotsOrCache(t *testing.T) {
	var hits int32
	srv := newSite(t, &hits)
	f := NewFetcher(FetcherOptions{UserAgent: "test-agent"})

	_, err := f.Get(context.Background(), srv.URL+"/private/page")
	require.NoError(t, err)
	_, err = f.Get(context.Background(), srv.URL+"/private/page")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	f.Remember("k", []byte("v"))
	_, ok := f.Recall("k")
	assert.False(t, ok, "no cache configured")
}
