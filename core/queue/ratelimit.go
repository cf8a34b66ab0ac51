package queue

import (
	"context"

	"feed-processor/core/ingest"

	"golang.org/x/time/rate"
)

// Limited wraps a publisher so that publishes do not exceed limiter's rate.
type Limited struct {
	next    ingest.Publisher
	limiter *rate.Limiter
}

// NewLimited returns next unchanged when perSecond is not positive.
func NewLimited(next ingest.Publisher, perSecond float64, burst int) ingest.Publisher {
	if perSecond <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Publish waits for a token, then delegates.
func (l *Limited) Publish(ctx context.Context, msg ingest.Message) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", ingest.MarkPublish(err, "rate limit wait")
	}
	return l.next.Publish(ctx, msg)
}
