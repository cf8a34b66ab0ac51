package feed_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"
	"feed-processor/core/retry"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) feed.Config {
	return feed.Config{
		CacheDir:  t.TempDir(),
		UserAgent: "Trivial Security",
		Retry:     retry.Config{MaxAttempts: 3, InitialIntervalMS: 1, MaxIntervalMS: 2},
	}
}

func TestFetcher_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("ETag cache", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			assert.Equal(t, "Trivial Security", r.Header.Get("User-Agent"))
			if r.Header.Get("If-None-Match") == `"v1"` {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write([]byte("1.2.3.4\n"))
		}))
		defer srv.Close()

		f := feed.NewFetcher(testConfig(t), srv.Client(), nil)

		first, err := f.Download(ctx, srv.URL+"/ip-blacklist")
		require.NoError(t, err)
		assert.False(t, first.Cached)
		assert.Equal(t, "1.2.3.4\n", string(first.Body))
		assert.Equal(t, `"v1"`, first.ETag)

		second, err := f.Download(ctx, srv.URL+"/ip-blacklist")
		require.NoError(t, err)
		assert.True(t, second.Cached)
		assert.Equal(t, first.Body, second.Body)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Cache refresh replaces body and ETag", func(t *testing.T) {
		var version atomic.Int32
		version.Store(1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			etag := fmt.Sprintf(`"v%d"`, version.Load())
			if r.Header.Get("If-None-Match") == etag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
			w.Header().Set("ETag", etag)
			_, _ = w.Write([]byte(strings.Repeat("1.2.3.4\n", int(version.Load()))))
		}))
		defer srv.Close()

		cfg := testConfig(t)
		f := feed.NewFetcher(cfg, srv.Client(), nil)

		_, err := f.Download(ctx, srv.URL)
		require.NoError(t, err)
		version.Store(2)
		refreshed, err := f.Download(ctx, srv.URL)
		require.NoError(t, err)
		assert.False(t, refreshed.Cached)
		assert.Equal(t, `"v2"`, refreshed.ETag)

		cached, err := f.Download(ctx, srv.URL)
		require.NoError(t, err)
		assert.True(t, cached.Cached)
		assert.Equal(t, refreshed.Body, cached.Body)

		entries, err := os.ReadDir(cfg.CacheDir)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		for _, e := range entries {
			assert.NotEqual(t, ".tmp", filepath.Ext(e.Name()), e.Name())
		}
	})

	t.Run("Retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("5.6.7.8\n"))
		}))
		defer srv.Close()

		dl, err := feed.NewFetcher(testConfig(t), srv.Client(), nil).Download(ctx, srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "5.6.7.8\n", string(dl.Body))
		assert.Equal(t, int32(3), calls.Load())
	})

	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{"Not found is not retried", http.StatusNotFound, 1},
		{"Forbidden is not retried", http.StatusForbidden, 1},
		{"Rate limited exhausts retries", http.StatusTooManyRequests, 3},
		{"Server error exhausts retries", http.StatusInternalServerError, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := feed.NewFetcher(testConfig(t), srv.Client(), nil).Download(ctx, srv.URL)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ingest.ErrFetch))
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}

	t.Run("Body limit", func(t *testing.T) {
		big := make([]byte, 2<<20)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(big)
		}))
		defer srv.Close()

		cfg := testConfig(t)
		cfg.MaxBodyMB = 1
		_, err := feed.NewFetcher(cfg, srv.Client(), nil).Download(ctx, srv.URL)
		assert.True(t, errors.Is(err, ingest.ErrFetch))
	})
}
