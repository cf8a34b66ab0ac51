package talos_test

import (
	"context"
	"testing"
	"time"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"
	"feed-processor/feature/talos"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDef = feed.Definition{
	Name:   "ipreputation",
	Source: "talosintelligence.com",
	URL:    "https://www.talosintelligence.com/documents/ip-blacklist",
}

type fakeDownloader struct {
	body  string
	err   error
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, url string) (*feed.Download, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &feed.Download{
		URL:       url,
		Body:      []byte(f.body),
		FetchedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}, nil
}

type fakeArchive struct {
	err  error
	puts map[string][]byte
}

func (a *fakeArchive) Key(source, name string, at time.Time) string {
	return "Dev/feeds/" + source + "/" + name + "/" + at.Format("2006010215") + ".txt"
}

func (a *fakeArchive) Put(ctx context.Context, key string, body []byte) error {
	if a.err != nil {
		return a.err
	}
	if a.puts == nil {
		a.puts = map[string][]byte{}
	}
	a.puts[key] = body
	return nil
}

func TestSource_Fetch(t *testing.T) {
	ctx := context.Background()

	t.Run("Archives and streams", func(t *testing.T) {
		dl := &fakeDownloader{body: "# Talos\n1.2.3.4\nnope\n10.0.0.0/8\n"}
		archive := &fakeArchive{}
		src := talos.NewSource(testDef, dl, archive, 0.5, nil)
		assert.Equal(t, "ipreputation", src.Name())

		batch, err := src.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Dev/feeds/talosintelligence.com/ipreputation/2024050109.txt", batch.SnapshotKey)
		assert.Contains(t, archive.puts, batch.SnapshotKey)

		records, dropped, err := ingest.Collect(batch.Records)
		require.NoError(t, err)
		assert.Zero(t, dropped)
		require.Len(t, records, 2)
		assert.Equal(t, "1.2.3.4", records[0].ID)
		assert.Equal(t, "10.0.0.0/8", records[1].ID)
		assert.Equal(t, 1, batch.Skipped())
	})

	t.Run("Archive failure is not fatal", func(t *testing.T) {
		src := talos.NewSource(testDef, &fakeDownloader{body: "1.2.3.4\n"}, &fakeArchive{err: errors.New("denied")}, 0.5, nil)
		batch, err := src.Fetch(ctx)
		require.NoError(t, err)
		assert.Empty(t, batch.SnapshotKey)
	})

	t.Run("Download failure", func(t *testing.T) {
		fetchErr := ingest.MarkFetch(errors.New("timeout"), "download")
		src := talos.NewSource(testDef, &fakeDownloader{err: fetchErr}, nil, 0.5, nil)
		_, err := src.Fetch(ctx)
		assert.True(t, errors.Is(err, ingest.ErrFetch))
	})
}
