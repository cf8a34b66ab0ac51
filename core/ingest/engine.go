package ingest

import (
	"context"
	"sync"
	"time"

	"feed-processor/core/retry"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recorder receives the outcome of every run.
type Recorder interface {
	ObserveRun(res *RunResult, elapsed time.Duration)
}

// Deps are the collaborators of an engine. They are passed explicitly; the engine
// keeps no package-level state.
type Deps struct {
	Store     StateStore
	Publisher Publisher
	Logger    *zap.Logger
	Metrics   Recorder
	// Now defaults to time.Now.
	Now func() time.Time
}

// Options tune a run.
type Options struct {
	// BatchSize is the number of ids per state lookup and per publish/commit chunk.
	BatchSize int
	// Workers bounds the chunks in flight during each phase.
	Workers int
	// RunTimeout is the wall-clock deadline of the whole run. Zero means none.
	RunTimeout time.Duration
	// PublishTimeout bounds a single publish attempt. In-flight attempts run on a
	// context detached from the run deadline so they can finish after cancellation.
	PublishTimeout time.Duration

	StoreRetry   retry.Policy
	PublishRetry retry.Policy
}

// Engine runs the fetch → diff → publish → commit pipeline.
type Engine struct {
	deps  Deps
	opts  Options
	store StateStore
}

// NewEngine creates an engine. Store and Publisher are required.
func NewEngine(deps Deps, opts Options) *Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Engine{
		deps:  deps,
		opts:  opts,
		store: &retryingStore{inner: deps.Store, policy: opts.StoreRetry},
	}
}

// Run executes one run for src. The returned result is never nil, including on
// failure; err is the run-level error (also stored in the result).
func (e *Engine) Run(ctx context.Context, src Source) (*RunResult, error) {
	if e.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.RunTimeout)
		defer cancel()
	}

	store := e.store
	if s, ok := src.(Scoped); ok {
		store = ScopeStore(store, s.Scope())
	}

	r := &run{
		engine: e,
		store:  store,
		log:    e.deps.Logger.With(zap.String("feed", src.Name())),
		res: &RunResult{
			Feed:      src.Name(),
			State:     StatePending,
			StartedAt: e.deps.Now(),
			Failures:  []Failure{},
		},
	}

	err := r.execute(ctx, src)
	r.finish(err)
	return r.res, r.res.Err
}

type run struct {
	engine *Engine
	store  StateStore
	log    *zap.Logger

	mu  sync.Mutex
	res *RunResult
}

func (r *run) execute(ctx context.Context, src Source) error {
	opts := r.engine.opts

	r.transition(StateFetching)
	batch, err := src.Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch")
	}
	r.res.SnapshotKey = batch.SnapshotKey

	records, dropped, err := Collect(batch.Records)
	if batch.Skipped != nil {
		r.res.Skipped = batch.Skipped()
	}
	r.res.TotalFetched = len(records) + dropped
	r.res.Duplicates = dropped
	if err != nil {
		return errors.Wrap(err, "read feed")
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "fetch interrupted")
	}

	r.transition(StateDiffing)
	diff, err := Diff(ctx, r.store, records, DiffOptions{BatchSize: opts.BatchSize, Workers: opts.Workers})
	if diff != nil {
		r.res.New = diff.New
		r.res.Changed = diff.Changed
		r.res.Unchanged = diff.Unchanged
		r.res.Failures = append(r.res.Failures, diff.Failures...)
	}
	if err != nil {
		return errors.Wrap(err, "diff")
	}
	r.log.Debug("Diff complete",
		zap.Int("new", diff.New),
		zap.Int("changed", diff.Changed),
		zap.Int("unchanged", diff.Unchanged),
	)

	r.transition(StatePublishing)
	published, err := r.publish(ctx, diff.Forward)
	if err != nil {
		return err
	}

	r.transition(StateCommitting)
	return r.commit(ctx, published)
}

// publish sends the forward set. Per-record failures are collected and never abort
// the phase; cancellation stops new publishes from starting.
func (r *run) publish(ctx context.Context, forward []Candidate) ([]Candidate, error) {
	opts := r.engine.opts
	ok := make([]bool, len(forward))
	attempted := make([]bool, len(forward))

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for _, b := range chunkBounds(len(forward), opts.BatchSize) {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for i := b.lo; i < b.hi; i++ {
				if ctx.Err() != nil {
					return nil
				}
				attempted[i] = true
				msgID, err := r.publishOne(ctx, forward[i])
				if err != nil {
					r.fail(forward[i], StagePublish, err)
					continue
				}
				ok[i] = true
				r.log.Debug("Published indicator",
					zap.String("id", forward[i].Record.ID),
					zap.String("message_id", msgID),
					zap.String("change", string(forward[i].Class)),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	published := make([]Candidate, 0, len(forward))
	deferred := 0
	for i, c := range forward {
		if ok[i] {
			published = append(published, c)
		}
		if !attempted[i] {
			deferred++
		}
	}
	r.res.Forwarded = len(published)
	r.res.Deferred = deferred

	if err := ctx.Err(); err != nil {
		return published, errors.Wrapf(err, "publish interrupted with %d records deferred", deferred)
	}
	return published, nil
}

func (r *run) publishOne(ctx context.Context, c Candidate) (string, error) {
	opts := r.engine.opts
	msg := NewMessage(c.Record, c.Hash, c.Class)
	return retry.Do(ctx, opts.PublishRetry, retry.On(ErrPublish), func(ctx context.Context) (string, error) {
		attemptCtx := context.WithoutCancel(ctx)
		if opts.PublishTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(attemptCtx, opts.PublishTimeout)
			defer cancel()
		}
		return r.engine.deps.Publisher.Publish(attemptCtx, msg)
	})
}

// commit writes state for published records only. A store error stops the phase and
// fails the run; entries already written stay.
func (r *run) commit(ctx context.Context, published []Candidate) error {
	opts := r.engine.opts
	now := r.engine.deps.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, b := range chunkBounds(len(published), opts.BatchSize) {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for _, c := range published[b.lo:b.hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				seen := c.Record.FetchedAt
				if seen.IsZero() {
					seen = now
				}
				first := c.FirstSeen
				if first.IsZero() {
					first = seen
				}
				forwarded := now
				applied, err := r.store.PutIfAbsentOrChanged(gctx, StateEntry{
					ID:            c.Record.ID,
					ContentHash:   c.Hash,
					FirstSeen:     first,
					LastSeen:      seen,
					LastForwarded: &forwarded,
				})
				if err != nil {
					r.fail(c, StageCommit, err)
					return errors.Wrapf(err, "commit %s", c.Record.ID)
				}
				r.mu.Lock()
				if applied {
					r.res.Committed++
				} else {
					r.res.Conflicts++
				}
				r.mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *run) fail(c Candidate, stage Stage, err error) {
	r.mu.Lock()
	r.res.Failures = append(r.res.Failures, Failure{Record: c.Record, Stage: stage, Err: err, position: c.position})
	r.mu.Unlock()
}

func (r *run) transition(to State) {
	r.log.Debug("Run state", zap.String("from", string(r.res.State)), zap.String("to", string(to)))
	r.res.State = to
	r.res.States = append(r.res.States, to)
}

func (r *run) finish(err error) {
	res := r.res
	res.FinishedAt = r.engine.deps.Now()
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		r.transition(StateFailed)
	} else {
		r.transition(StateDone)
	}

	sortFailures(res.Failures)
	for i := range res.Failures {
		if res.Failures[i].Err != nil {
			res.Failures[i].Error = res.Failures[i].Err.Error()
		}
	}

	fields := []zap.Field{
		zap.String("state", string(res.State)),
		zap.Int("total_fetched", res.TotalFetched),
		zap.Int("new", res.New),
		zap.Int("changed", res.Changed),
		zap.Int("unchanged", res.Unchanged),
		zap.Int("forwarded", res.Forwarded),
		zap.Int("committed", res.Committed),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("skipped", res.Skipped),
		zap.Int("failures", len(res.Failures)),
	}
	if err != nil {
		r.log.Error("Run failed", append(fields, zap.Error(err))...)
	} else {
		r.log.Info("Run complete", fields...)
	}

	if m := r.engine.deps.Metrics; m != nil {
		m.ObserveRun(res, res.FinishedAt.Sub(res.StartedAt))
	}
}

// retryingStore applies the store retry policy to every call. Only errors marked
// ErrStoreUnavailable are retried. Conditional writes are idempotent under equal
// hashes, so retrying them is safe.
type retryingStore struct {
	inner  StateStore
	policy retry.Policy
}

var retryStore = retry.On(ErrStoreUnavailable)

func (s *retryingStore) Get(ctx context.Context, id string) (StateEntry, error) {
	return retry.Do(ctx, s.policy, retryStore, func(ctx context.Context) (StateEntry, error) {
		return s.inner.Get(ctx, id)
	})
}

func (s *retryingStore) PutIfAbsentOrChanged(ctx context.Context, entry StateEntry) (bool, error) {
	return retry.Do(ctx, s.policy, retryStore, func(ctx context.Context) (bool, error) {
		return s.inner.PutIfAbsentOrChanged(ctx, entry)
	})
}

func (s *retryingStore) BatchGet(ctx context.Context, ids []string) (map[string]StateEntry, error) {
	return retry.Do(ctx, s.policy, retryStore, func(ctx context.Context) (map[string]StateEntry, error) {
		return s.inner.BatchGet(ctx, ids)
	})
}
