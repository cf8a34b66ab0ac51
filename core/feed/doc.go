// Package feed downloads and tokenizes line oriented threat-intelligence feeds.
//
// # Download
//
// Fetcher.Download performs an HTTP GET with the configured User-Agent. Transport
// errors, 5xx and 429 responses are retried with exponential backoff; any other
// non-2xx status fails immediately. Bodies with an ETag are cached under CacheDir
// and revalidated with If-None-Match on the next run. All download errors are
// marked ingest.ErrFetch.
//
// # Stream
//
// Stream yields one record per valid line. Comment ("#") and blank lines are
// ignored; lines the Validator rejects are counted in Stats and skipped.
//
// # Usage
//
//	f := feed.NewFetcher(cfg.Feed, nil, logger)
//	dl, err := f.Download(ctx, def.URL)
//	records, stats := feed.Stream(dl.Body, dl.FetchedAt, parser, cfg.Feed.MaxInvalidFraction)
package feed
