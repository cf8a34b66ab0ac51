package ingest

import (
	"context"
	"iter"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchSize matches the DynamoDB BatchGetItem key limit.
	DefaultBatchSize = 100
	// DefaultWorkers is the number of chunks processed concurrently.
	DefaultWorkers = 4
)

// Candidate is a hashed and classified record.
type Candidate struct {
	Record IndicatorRecord
	Hash   string
	Class  Classification
	// FirstSeen is carried over from the stored entry of a CHANGED record.
	FirstSeen time.Time

	position int
}

// DiffResult is the classification of a deduplicated batch.
type DiffResult struct {
	// Forward is NEW ∪ CHANGED, ordered by first-seen position in the input.
	Forward []Candidate

	New       int
	Changed   int
	Unchanged int

	// Failures holds records whose attributes could not be hashed.
	Failures []Failure
}

// DiffOptions bounds the chunking and concurrency of Diff.
type DiffOptions struct {
	BatchSize int
	Workers   int
}

func (o DiffOptions) withDefaults() DiffOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Collect drains a record sequence into an ordered, deduplicated slice.
// For a repeated id the last occurrence wins but keeps the position of the first;
// dropped counts the discarded earlier occurrences.
func Collect(seq iter.Seq2[IndicatorRecord, error]) (records []IndicatorRecord, dropped int, err error) {
	index := make(map[string]int)
	for rec, err := range seq {
		if err != nil {
			return records, dropped, err
		}
		if i, ok := index[rec.ID]; ok {
			records[i] = rec
			dropped++
			continue
		}
		index[rec.ID] = len(records)
		records = append(records, rec)
	}
	return records, dropped, nil
}

// Dedupe applies the Collect rules to an in-memory slice.
func Dedupe(records []IndicatorRecord) ([]IndicatorRecord, int) {
	out, dropped, _ := Collect(func(yield func(IndicatorRecord, error) bool) {
		for _, rec := range records {
			if !yield(rec, nil) {
				return
			}
		}
	})
	return out, dropped
}

// Classify compares a record hash with the stored entry, if any.
func Classify(hash string, prior StateEntry, found bool) Classification {
	switch {
	case !found:
		return ClassNew
	case prior.ContentHash != hash:
		return ClassChanged
	default:
		return ClassUnchanged
	}
}

// Diff classifies deduplicated records against the store.
// State is fetched in chunks of opts.BatchSize with up to opts.Workers chunks in flight.
// A store error stops new chunks from starting; the counts of finished chunks are
// still returned alongside the error.
func Diff(ctx context.Context, store StateStore, records []IndicatorRecord, opts DiffOptions) (*DiffResult, error) {
	opts = opts.withDefaults()

	bounds := chunkBounds(len(records), opts.BatchSize)
	parts := make([]*DiffResult, len(bounds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, b := range bounds {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			part, err := diffChunk(gctx, store, records[b.lo:b.hi], b.lo)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	return mergeDiff(parts), err
}

func diffChunk(ctx context.Context, store StateStore, recs []IndicatorRecord, offset int) (*DiffResult, error) {
	res := &DiffResult{}
	hashed := make([]Candidate, 0, len(recs))
	ids := make([]string, 0, len(recs))

	for i, rec := range recs {
		hash, err := hashRecord(rec)
		if err != nil {
			res.Failures = append(res.Failures, Failure{Record: rec, Stage: StageHash, Err: err, position: offset + i})
			continue
		}
		hashed = append(hashed, Candidate{Record: rec, Hash: hash, position: offset + i})
		ids = append(ids, rec.ID)
	}
	if len(ids) == 0 {
		return res, nil
	}

	prior, err := store.BatchGet(ctx, ids)
	if err != nil {
		return nil, errors.Wrapf(err, "batch get %d ids at offset %d", len(ids), offset)
	}

	for _, c := range hashed {
		entry, found := prior[c.Record.ID]
		c.Class = Classify(c.Hash, entry, found)
		if found {
			c.FirstSeen = entry.FirstSeen
			if c.FirstSeen.IsZero() {
				c.FirstSeen = entry.LastSeen
			}
		}
		switch c.Class {
		case ClassNew:
			res.New++
		case ClassChanged:
			res.Changed++
		case ClassUnchanged:
			res.Unchanged++
		}
		if c.Class.Forwardable() {
			res.Forward = append(res.Forward, c)
		}
	}
	return res, nil
}

func hashRecord(rec IndicatorRecord) (string, error) {
	if rec.ID == "" {
		return "", errors.Mark(errors.New("record has empty id"), ErrMalformedAttributes)
	}
	return ContentHash(rec.Attributes)
}

func mergeDiff(parts []*DiffResult) *DiffResult {
	out := &DiffResult{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		out.New += p.New
		out.Changed += p.Changed
		out.Unchanged += p.Unchanged
		out.Forward = append(out.Forward, p.Forward...)
		out.Failures = append(out.Failures, p.Failures...)
	}
	sort.SliceStable(out.Forward, func(i, j int) bool {
		return out.Forward[i].position < out.Forward[j].position
	})
	sortFailures(out.Failures)
	return out
}

func sortFailures(f []Failure) {
	sort.SliceStable(f, func(i, j int) bool {
		return f[i].position < f[j].position
	})
}

type bound struct{ lo, hi int }

func chunkBounds(n, size int) []bound {
	var out []bound
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, bound{lo, hi})
	}
	return out
}
