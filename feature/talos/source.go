package talos

import (
	"context"
	"iter"
	"time"

	"feed-processor/core/feed"
	"feed-processor/core/ingest"

	"go.uber.org/zap"
)

// Downloader fetches a feed body.
type Downloader interface {
	Download(ctx context.Context, url string) (*feed.Download, error)
}

// Archiver stores raw feed bodies.
type Archiver interface {
	Key(source, name string, at time.Time) string
	Put(ctx context.Context, key string, body []byte) error
}

// Source is the ingest.Source of one Talos feed.
type Source struct {
	def        feed.Definition
	downloader Downloader
	archive    Archiver
	maxInvalid float64
	log        *zap.Logger
}

// NewSource creates a source for def. archive may be nil to skip snapshots.
func NewSource(def feed.Definition, downloader Downloader, archive Archiver, maxInvalid float64, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{
		def:        def,
		downloader: downloader,
		archive:    archive,
		maxInvalid: maxInvalid,
		log:        log.With(zap.String("feed", def.Name), zap.String("source", def.Source)),
	}
}

// Name implements ingest.Source.
func (s *Source) Name() string { return s.def.Name }

// Scope implements ingest.Scoped. Every feed keeps its own state, so an address
// listed by two feeds is tracked once per feed.
func (s *Source) Scope() string { return StateScope(s.def) }

// StateScope is the state store scope of a feed: "<source>/<name>".
func StateScope(def feed.Definition) string {
	return def.Source + "/" + def.Name
}

// Fetch downloads the feed, archives the raw body and returns a lazy record stream.
// A failed archive is logged and leaves SnapshotKey empty.
func (s *Source) Fetch(ctx context.Context) (*ingest.Batch, error) {
	dl, err := s.downloader.Download(ctx, s.def.URL)
	if err != nil {
		return nil, err
	}

	var key string
	if s.archive != nil {
		k := s.archive.Key(s.def.Source, s.def.Name, dl.FetchedAt)
		if err := s.archive.Put(ctx, k, dl.Body); err != nil {
			s.log.Warn("Snapshot archive failed", zap.String("key", k), zap.Error(err))
		} else {
			key = k
		}
	}

	records, stats := feed.Stream(dl.Body, dl.FetchedAt, NewParser(s.def), s.maxInvalid)
	return &ingest.Batch{
		Records:     s.logged(records, stats),
		Skipped:     func() int { return stats.Invalid },
		SnapshotKey: key,
	}, nil
}

func (s *Source) logged(records iter.Seq2[ingest.IndicatorRecord, error], stats *feed.Stats) iter.Seq2[ingest.IndicatorRecord, error] {
	return func(yield func(ingest.IndicatorRecord, error) bool) {
		defer func() {
			if stats.Invalid > 0 {
				s.log.Warn("Rejected feed lines",
					zap.Int("invalid", stats.Invalid),
					zap.Strings("samples", stats.Samples),
				)
			}
			s.log.Info("Parsed feed", zap.Int("records", stats.Valid), zap.Int("comments", stats.Comments))
		}()
		for rec, err := range records {
			if !yield(rec, err) {
				return
			}
		}
	}
}
