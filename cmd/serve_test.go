package cmd

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"feed-processor/core/middleware/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLocalApp(t *testing.T, apiKey string) *app {
	t.Setenv("STATE_DRIVER", "memory")
	t.Setenv("QUEUE_DRIVER", "memory")
	t.Setenv("STORAGE_DISABLED", "true")
	t.Setenv("SERVER_API_KEY", apiKey)

	a, err := newApp(context.Background(), appOptions{logFormat: "console"})
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func TestNewApp_Local(t *testing.T) {
	a := setupLocalApp(t, "")

	assert.Nil(t, a.snapshots)
	assert.NotNil(t, a.store)
	assert.NotNil(t, a.publisher)
	assert.Equal(t, "dev-early-warning-service", a.cfg.Queue.Name)
}

func TestNewServer(t *testing.T) {
	a := setupLocalApp(t, "secret")
	app := newServer(a)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	req := httptest.NewRequest("GET", "/metrics", nil)
	req.Header.Set(auth.Header, "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")

	req = httptest.NewRequest("GET", "/runs/last", nil)
	req.Header.Set(auth.Header, "secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
