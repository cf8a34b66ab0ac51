package talos

import (
	"context"
	"sync"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Runner executes one ingestion run.
type Runner interface {
	Run(ctx context.Context, src ingest.Source) (*ingest.RunResult, error)
}

// SourceFactory builds the source of a feed.
type SourceFactory func(def feed.Definition) ingest.Source

// Service runs the configured Talos feeds and answers state lookups.
type Service struct {
	runner  Runner
	store   ingest.StateStore
	feeds   []feed.Definition
	sources SourceFactory
	logger  *zap.Logger

	mu   sync.RWMutex
	last []*ingest.RunResult
}

// NewService creates a new Talos service.
func NewService(runner Runner, store ingest.StateStore, feeds []feed.Definition, sources SourceFactory, logger *zap.Logger) *Service {
	return &Service{
		runner:  runner,
		store:   store,
		feeds:   feeds,
		sources: sources,
		logger:  logger,
	}
}

// RunAll runs every enabled feed in order. A failing feed does not stop the others;
// the returned error summarises the failed ones.
func (s *Service) RunAll(ctx context.Context) ([]*ingest.RunResult, error) {
	results := make([]*ingest.RunResult, 0, len(s.feeds))
	for _, def := range s.feeds {
		if def.Disabled {
			s.logger.Info("Feed disabled", zap.String("feed", def.Name))
			continue
		}
		res, _ := s.runner.Run(ctx, s.sources(def))
		results = append(results, res)
	}

	s.mu.Lock()
	s.last = results
	s.mu.Unlock()

	return results, Summarize(results)
}

// LastResults returns the results of the latest RunAll.
func (s *Service) LastResults() []*ingest.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*ingest.RunResult(nil), s.last...)
}

// FeedState is the stored state of an indicator within one feed.
type FeedState struct {
	Feed   string            `json:"feed"`
	Source string            `json:"source"`
	State  ingest.StateEntry `json:"state"`
}

// Lookup returns the stored state of an address or network in every configured
// feed that lists it. It fails with ingest.ErrNotFound when no feed does.
func (s *Service) Lookup(ctx context.Context, indicator string) (Indicator, []FeedState, error) {
	ind, err := ParseIndicator(indicator)
	if err != nil {
		return Indicator{}, nil, err
	}

	var states []FeedState
	for _, def := range s.feeds {
		entry, err := ingest.ScopeStore(s.store, StateScope(def)).Get(ctx, ind.Canonical)
		if errors.Is(err, ingest.ErrNotFound) {
			continue
		}
		if err != nil {
			return ind, nil, err
		}
		states = append(states, FeedState{Feed: def.Name, Source: def.Source, State: entry})
	}
	if len(states) == 0 {
		return ind, nil, ingest.ErrNotFound
	}
	return ind, states, nil
}

// Summarize returns an error naming every failed run, or nil.
func Summarize(results []*ingest.RunResult) error {
	var failed []string
	var first error
	for _, res := range results {
		if res == nil || res.Succeeded() {
			continue
		}
		failed = append(failed, res.Feed)
		if first == nil {
			first = res.Err
		}
	}
	if len(failed) == 0 {
		return nil
	}
	if first == nil {
		first = errors.New("run failed")
	}
	return errors.Wrapf(first, "%d of %d feeds failed %v", len(failed), len(results), failed)
}
