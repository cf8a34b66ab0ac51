// Package retry provides the explicit retry policy used by the feed fetcher, the state
// store and the publishers.
//
// A Policy is a plain value (attempts, exponential backoff with jitter) passed to the
// component that performs I/O, so every retry path can be exercised in tests with
// millisecond intervals and counted attempts. Delays come from
// github.com/cenkalti/backoff/v5.
//
// # Usage
//
//	p := retry.FromConfig(cfg.Pipeline.StoreRetry)
//	entries, err := retry.Do(ctx, p, retry.On(ingest.ErrStoreUnavailable),
//	    func(ctx context.Context) (map[string]ingest.StateEntry, error) {
//	        return store.BatchGet(ctx, ids)
//	    })
package retry
