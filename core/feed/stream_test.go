package feed_test

import (
	"testing"
	"time"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var digitsOnly = feed.ValidatorFunc(func(line string, fetchedAt time.Time) feed.Validation {
	for _, c := range line {
		if (c < '0' || c > '9') && c != '.' {
			return feed.Validation{Err: errors.New("not an address")}
		}
	}
	return feed.Validation{Record: ingest.IndicatorRecord{ID: line, FetchedAt: fetchedAt}}
})

func drain(t *testing.T, body string, maxInvalid float64) ([]string, *feed.Stats, error) {
	t.Helper()
	seq, stats := feed.Stream([]byte(body), time.Now(), digitsOnly, maxInvalid)
	var ids []string
	for rec, err := range seq {
		if err != nil {
			return ids, stats, err
		}
		ids = append(ids, rec.ID)
	}
	return ids, stats, nil
}

func TestStream(t *testing.T) {
	t.Run("Comments and blanks", func(t *testing.T) {
		ids, stats, err := drain(t, "# header\n\n1.2.3.4\n  5.6.7.8  \n#1.1.1.1\n", 0.5)
		require.NoError(t, err)
		assert.Equal(t, []string{"1.2.3.4", "5.6.7.8"}, ids)
		assert.Equal(t, 2, stats.Valid)
		assert.Equal(t, 3, stats.Comments)
		assert.Zero(t, stats.Invalid)
	})

	t.Run("Invalid lines are skipped", func(t *testing.T) {
		ids, stats, err := drain(t, "1.2.3.4\nbogus\n5.6.7.8\n9.9.9.9\n", 0.5)
		require.NoError(t, err)
		assert.Len(t, ids, 3)
		assert.Equal(t, 1, stats.Invalid)
		require.Len(t, stats.Samples, 1)
		assert.Contains(t, stats.Samples[0], "bogus")
	})

	t.Run("Too many invalid lines", func(t *testing.T) {
		_, stats, err := drain(t, "1.2.3.4\nbad\nworse\n", 0.5)
		assert.True(t, errors.Is(err, ingest.ErrFeedFormat))
		assert.Equal(t, 2, stats.Invalid)
	})

	t.Run("Zero fraction disables the check", func(t *testing.T) {
		ids, _, err := drain(t, "bad\nworse\n", 0)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Empty body", func(t *testing.T) {
		ids, stats, err := drain(t, "", 0.5)
		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.Zero(t, stats.InvalidFraction())
	})

	t.Run("Single use", func(t *testing.T) {
		seq, _ := feed.Stream([]byte("1.2.3.4\n"), time.Now(), digitsOnly, 0)
		for range seq {
		}
		var second error
		for _, err := range seq {
			second = err
		}
		assert.Error(t, second)
	})
}
