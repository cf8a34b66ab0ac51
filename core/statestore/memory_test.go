package statestore

import (
	"context"
	"strings"
	"testing"
	"time"

	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntry(id, hashChar string) ingest.StateEntry {
	forwarded := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return ingest.StateEntry{
		ID:            id,
		ContentHash:   strings.Repeat(hashChar, 64),
		FirstSeen:     time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
		LastSeen:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		LastForwarded: &forwarded,
	}
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	_, err := store.Get(ctx, "1.2.3.4")
	assert.True(t, errors.Is(err, ingest.ErrNotFound))

	applied, err := store.PutIfAbsentOrChanged(ctx, testEntry("1.2.3.4", "a"))
	require.NoError(t, err)
	assert.True(t, applied)

	t.Run("Same hash is not rewritten", func(t *testing.T) {
		applied, err := store.PutIfAbsentOrChanged(ctx, testEntry("1.2.3.4", "a"))
		require.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, 1, store.Writes())
	})

	t.Run("Changed hash is written", func(t *testing.T) {
		applied, err := store.PutIfAbsentOrChanged(ctx, testEntry("1.2.3.4", "b"))
		require.NoError(t, err)
		assert.True(t, applied)

		got, err := store.Get(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, strings.Repeat("b", 64), got.ContentHash)
	})

	t.Run("BatchGet omits missing ids", func(t *testing.T) {
		got, err := store.BatchGet(ctx, []string{"1.2.3.4", "5.6.7.8"})
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Contains(t, got, "1.2.3.4")
	})

	assert.Equal(t, 1, store.Len())
}
