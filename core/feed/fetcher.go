package feed

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"feed-processor/core/ingest"
	"feed-processor/core/retry"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// errTransient marks failures worth another attempt: transport errors, 5xx and 429.
var errTransient = errors.New("transient http failure")

// Download is a fetched feed body.
type Download struct {
	URL       string
	Body      []byte
	ETag      string
	FetchedAt time.Time
	// Cached is true when the server answered 304 and the cached body was reused.
	Cached bool
}

// Fetcher downloads feeds over HTTP with retries and an on-disk ETag cache.
type Fetcher struct {
	client *http.Client
	cfg    Config
	policy retry.Policy
	log    *zap.Logger
	now    func() time.Time
}

// NewFetcher creates a fetcher. A nil client gets one with the configured timeout.
func NewFetcher(cfg Config, client *http.Client, log *zap.Logger) *Fetcher {
	if client == nil {
		timeout := cfg.TimeoutSeconds
		if timeout <= 0 {
			timeout = 30
		}
		client = &http.Client{Timeout: time.Duration(timeout) * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	policy := retry.FromConfig(cfg.Retry).WithNotify(func(err error, next time.Duration) {
		log.Warn("Feed download failed, retrying", zap.Error(err), zap.Duration("next", next))
	})
	return &Fetcher{client: client, cfg: cfg, policy: policy, log: log, now: time.Now}
}

// Download fetches url. Errors are marked ingest.ErrFetch.
func (f *Fetcher) Download(ctx context.Context, url string) (*Download, error) {
	url = normalizeURL(url)
	cachePath, etagPath := f.cachePaths(url)

	var cachedBody []byte
	etag := ""
	if f.cfg.CacheDir != "" {
		if b, err := os.ReadFile(cachePath); err == nil {
			if e, err := os.ReadFile(etagPath); err == nil {
				cachedBody, etag = b, strings.TrimSpace(string(e))
			}
		}
	}

	dl, err := retry.Do(ctx, f.policy, retry.On(errTransient), func(ctx context.Context) (*Download, error) {
		return f.get(ctx, url, etag, cachedBody)
	})
	if err != nil {
		return nil, ingest.MarkFetch(err, "download "+url)
	}

	if dl.Cached {
		f.log.Info("Feed not modified", zap.String("url", url), zap.String("etag", etag))
		return dl, nil
	}
	if f.cfg.CacheDir != "" && dl.ETag != "" {
		if err := f.writeCache(cachePath, etagPath, dl); err != nil {
			f.log.Warn("Failed to cache feed body", zap.String("url", url), zap.Error(err))
		}
	}
	f.log.Info("Feed downloaded", zap.String("url", url), zap.Int("bytes", len(dl.Body)))
	return dl, nil
}

func (f *Fetcher) get(ctx context.Context, url, etag string, cachedBody []byte) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(err, "http get")
		}
		return nil, errors.Mark(errors.Wrap(err, "http get"), errTransient)
	}
	defer resp.Body.Close()

	switch code := resp.StatusCode; {
	case code == http.StatusNotModified && cachedBody != nil:
		return &Download{URL: url, Body: cachedBody, ETag: etag, FetchedAt: f.now().UTC(), Cached: true}, nil
	case code >= 200 && code < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody()+1))
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "read body"), errTransient)
		}
		if int64(len(body)) > f.maxBody() {
			return nil, errors.Newf("feed body exceeds %d bytes", f.maxBody())
		}
		return &Download{URL: url, Body: body, ETag: resp.Header.Get("ETag"), FetchedAt: f.now().UTC()}, nil
	case code >= 500 || code == http.StatusTooManyRequests:
		return nil, errors.Mark(errors.Newf("unexpected status %d", code), errTransient)
	default:
		return nil, errors.Newf("unexpected status %d", code)
	}
}

func (f *Fetcher) maxBody() int64 {
	mb := f.cfg.MaxBodyMB
	if mb <= 0 {
		mb = 64
	}
	return int64(mb) << 20
}

func (f *Fetcher) cachePaths(url string) (string, string) {
	name := base64.RawURLEncoding.EncodeToString([]byte(url)) + ".txt"
	p := filepath.Join(f.cfg.CacheDir, name)
	return p, p + ".etag"
}

// writeCache replaces the cached pair. The ETag is dropped first and written
// last, so a body is only ever paired with its own ETag.
func (f *Fetcher) writeCache(cachePath, etagPath string, dl *Download) error {
	if err := os.MkdirAll(f.cfg.CacheDir, 0o755); err != nil {
		return errors.Wrap(err, "create cache dir")
	}
	if err := os.Remove(etagPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "remove cached etag")
	}
	if err := writeFileAtomic(cachePath, dl.Body); err != nil {
		return errors.Wrap(err, "write cached body")
	}
	if err := writeFileAtomic(etagPath, []byte(dl.ETag)); err != nil {
		return errors.Wrap(err, "write cached etag")
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// normalizeURL drops default ports so the cache key is stable.
func normalizeURL(url string) string {
	url = strings.Replace(url, ":80/", "/", 1)
	return strings.Replace(url, ":443/", "/", 1)
}
