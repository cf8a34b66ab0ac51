package ingest

import (
	"context"
	"strings"
)

// Scoped is implemented by sources whose state is kept apart from every other
// source. The engine runs them against ScopeStore(store, Scope()).
type Scoped interface {
	Scope() string
}

// ScopeStore returns a view of store in which every id is stored as scope + "/" + id.
// Entries read through the view carry the unscoped id. An empty scope returns store.
func ScopeStore(store StateStore, scope string) StateStore {
	if scope == "" {
		return store
	}
	return &scopedStore{inner: store, prefix: scope + "/"}
}

type scopedStore struct {
	inner  StateStore
	prefix string
}

func (s *scopedStore) unscope(e StateEntry) StateEntry {
	e.ID = strings.TrimPrefix(e.ID, s.prefix)
	return e
}

func (s *scopedStore) Get(ctx context.Context, id string) (StateEntry, error) {
	e, err := s.inner.Get(ctx, s.prefix+id)
	if err != nil {
		return StateEntry{}, err
	}
	return s.unscope(e), nil
}

func (s *scopedStore) PutIfAbsentOrChanged(ctx context.Context, entry StateEntry) (bool, error) {
	entry.ID = s.prefix + entry.ID
	return s.inner.PutIfAbsentOrChanged(ctx, entry)
}

func (s *scopedStore) BatchGet(ctx context.Context, ids []string) (map[string]StateEntry, error) {
	scoped := make([]string, len(ids))
	for i, id := range ids {
		scoped[i] = s.prefix + id
	}
	found, err := s.inner.BatchGet(ctx, scoped)
	if err != nil {
		return nil, err
	}
	out := make(map[string]StateEntry, len(found))
	for _, e := range found {
		e = s.unscope(e)
		out[e.ID] = e
	}
	return out, nil
}
