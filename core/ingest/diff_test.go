package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStore is a minimal StateStore recording BatchGet chunk sizes.
type mapStore struct {
	mu      sync.Mutex
	entries map[string]StateEntry
	chunks  []int
	err     error
}

func (s *mapStore) Get(ctx context.Context, id string) (StateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return StateEntry{}, ErrNotFound
	}
	return e, nil
}

func (s *mapStore) PutIfAbsentOrChanged(ctx context.Context, e StateEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[e.ID]; ok && cur.ContentHash == e.ContentHash {
		return false, nil
	}
	s.entries[e.ID] = e
	return true, nil
}

func (s *mapStore) BatchGet(ctx context.Context, ids []string) (map[string]StateEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, len(ids))
	if s.err != nil {
		return nil, s.err
	}
	out := map[string]StateEntry{}
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func rec(id, score string) IndicatorRecord {
	return IndicatorRecord{ID: id, Attributes: map[string]string{"ip_address": id, "score": score}}
}

func entryFor(t *testing.T, r IndicatorRecord) StateEntry {
	hash, err := ContentHash(r.Attributes)
	require.NoError(t, err)
	return StateEntry{ID: r.ID, ContentHash: hash, LastSeen: mustTime(t, "2026-01-01T00:00:00Z")}
}

func TestDedupe(t *testing.T) {
	out, dropped := Dedupe([]IndicatorRecord{rec("a", "1"), rec("b", "1"), rec("a", "2"), rec("a", "3")})

	assert.Equal(t, 2, dropped)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "3", out[0].Attributes["score"])
	assert.Equal(t, "b", out[1].ID)
}

func TestCollect_StopsOnError(t *testing.T) {
	boom := errors.New("truncated body")
	got, _, err := Collect(func(yield func(IndicatorRecord, error) bool) {
		if !yield(rec("a", "1"), nil) {
			return
		}
		yield(IndicatorRecord{}, boom)
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, got, 1)
}

func TestClassify(t *testing.T) {
	prior := StateEntry{ContentHash: "h1"}
	assert.Equal(t, ClassNew, Classify("h1", StateEntry{}, false))
	assert.Equal(t, ClassChanged, Classify("h2", prior, true))
	assert.Equal(t, ClassUnchanged, Classify("h1", prior, true))
	assert.True(t, ClassNew.Forwardable())
	assert.True(t, ClassChanged.Forwardable())
	assert.False(t, ClassUnchanged.Forwardable())
}

func TestDiff(t *testing.T) {
	unchanged := rec("10.0.0.1", "1")
	changedOld := rec("10.0.0.2", "1")
	store := &mapStore{entries: map[string]StateEntry{
		unchanged.ID:  entryFor(t, unchanged),
		changedOld.ID: entryFor(t, changedOld),
	}}

	records := []IndicatorRecord{
		rec("10.0.0.9", "1"),
		unchanged,
		rec("10.0.0.2", "2"),
		{ID: "10.0.0.3", Attributes: map[string]string{"score": "\xff"}},
		rec("10.0.0.4", "1"),
	}

	res, err := Diff(context.Background(), store, records, DiffOptions{BatchSize: 2, Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, 2, res.New)
	assert.Equal(t, 1, res.Changed)
	assert.Equal(t, 1, res.Unchanged)
	require.Len(t, res.Forward, 3)
	assert.Equal(t, []string{"10.0.0.9", "10.0.0.2", "10.0.0.4"},
		[]string{res.Forward[0].Record.ID, res.Forward[1].Record.ID, res.Forward[2].Record.ID})
	assert.Equal(t, ClassChanged, res.Forward[1].Class)
	assert.Equal(t, mustTime(t, "2026-01-01T00:00:00Z"), res.Forward[1].FirstSeen)
	assert.True(t, res.Forward[0].FirstSeen.IsZero())

	require.Len(t, res.Failures, 1)
	assert.Equal(t, StageHash, res.Failures[0].Stage)
	assert.Equal(t, "10.0.0.3", res.Failures[0].Record.ID)

	assert.ElementsMatch(t, []int{2, 1, 1}, store.chunks)
}

func TestDiff_StoreError(t *testing.T) {
	store := &mapStore{entries: map[string]StateEntry{}, err: MarkStoreUnavailable(errors.New("timeout"), "batch get")}

	_, err := Diff(context.Background(), store, []IndicatorRecord{rec("a", "1")}, DiffOptions{})
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}

func TestChunkBounds(t *testing.T) {
	assert.Empty(t, chunkBounds(0, 100))
	assert.Equal(t, []bound{{0, 100}, {100, 200}, {200, 250}}, chunkBounds(250, 100))
	assert.Equal(t, []bound{{0, 3}}, chunkBounds(3, 100))
}
