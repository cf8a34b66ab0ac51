// Package ingest provides the deduplicating, idempotent feed ingestion pipeline.
//
// A run reads one feed and forwards only what changed since the last successful run:
//
//	FETCHING → DIFFING → PUBLISHING → COMMITTING → DONE
//	    └──────────┴───────────┴────────────┴──→ FAILED
//
// # Architecture
//
// 1. Source: a feed-specific fetcher yielding a lazy, single-use sequence of
// IndicatorRecord values. The engine drains it into an ordered batch, collapsing
// repeated ids to their last occurrence.
//
// 2. Diff: each record is hashed over its sorted attributes (ContentHash), state is
// looked up in chunks (BatchSize, default 100) and records are classified NEW,
// CHANGED or UNCHANGED. The forward set is NEW ∪ CHANGED in input order.
//
// 3. Publisher: one message per forwarded record, at-least-once. Consumers dedupe on
// id + content hash (Message.DedupeID).
//
// 4. StateStore: conditional writes (compare-and-set on the content hash) for
// records that were published. UNCHANGED records are never rewritten.
//
// # Failure semantics
//
// Per-record failures (hashing, publishing, committing) are collected in
// RunResult.Failures. Run-level failures (fetch, feed format, store outages after
// retries, cancellation) move the run to FAILED. Nothing is rolled back: records
// that were not committed are detected again by the next run.
//
// # Concurrency
//
// Fetch is sequential. Each following phase runs up to Workers chunks at once over
// independent id partitions. The StateStore is the only shared mutable resource.
//
// # Usage Example
//
//	engine := ingest.NewEngine(ingest.Deps{
//	    Store:     store,
//	    Publisher: publisher,
//	    Logger:    logger,
//	}, ingest.Options{Workers: 4, RunTimeout: 5 * time.Minute})
//
//	result, err := engine.Run(ctx, source)
package ingest
