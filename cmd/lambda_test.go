package cmd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduledHandler(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("# talos\n1.2.3.4\n5.6.7.8\n"))
	}))
	t.Cleanup(srv.Close)

	a := setupLocalApp(t, "")
	a.cfg.Feeds = []feed.Definition{{Name: "ipreputation", Source: "talosintelligence.com", URL: srv.URL}}
	a.cfg.Feed.CacheDir = t.TempDir()
	a.service = a.newService()
	handler := scheduledHandler(a)

	tests := []struct {
		name      string
		event     events.CloudWatchEvent
		wantNew   int
		forwarded int
	}{
		{"First schedule", events.CloudWatchEvent{ID: "evt-1", DetailType: "Scheduled Event"}, 2, 2},
		{"Second schedule", events.CloudWatchEvent{}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler(context.Background(), tt.event)
			require.NoError(t, err)
			require.Len(t, resp.Results, 1)
			res := resp.Results[0]
			assert.Equal(t, ingest.StateDone, res.State)
			assert.Equal(t, tt.wantNew, res.New)
			assert.Equal(t, tt.forwarded, res.Forwarded)
		})
	}
	assert.Equal(t, int32(2), requests.Load())
}
