// Package download implements the content download stage: fetch page
// bytes for every reachable or redirected bookmark and store them on disk.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/contentstore"
	"github.com/mlaurent/bookmark-audit/pkg/liveness"
	"github.com/mlaurent/bookmark-audit/pkg/ratelimit"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Fetcher retrieves raw page bytes. Tests inject fakes.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (data []byte, mimeType string, err error)
}

// HTTPFetcher fetches over plain HTTP with a size cap.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewHTTPFetcher builds a fetcher with the given bounds.
func NewHTTPFetcher(timeout time.Duration, userAgent string, maxBytes int64) *HTTPFetcher {
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch downloads a page, honoring the byte cap.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body of %s: %w", rawURL, err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// Downloader runs the download stage with the same bounded pool and
// per-domain pacing as the checker.
type Downloader struct {
	fetcher Fetcher
	content *contentstore.Store
	limiter *ratelimit.Limiter
	ledger  liveness.Ledger
	workers int
	logger  *slog.Logger
}

// NewDownloader builds the stage.
func NewDownloader(fetcher Fetcher, content *contentstore.Store, limiter *ratelimit.Limiter, ledger liveness.Ledger, cfg models.Config, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		fetcher: fetcher,
		content: content,
		limiter: limiter,
		ledger:  ledger,
		workers: cfg.Concurrency,
		logger:  logger,
	}
}

// Download fetches content for every checked bookmark whose liveness is
// reachable or redirected; redirected bookmarks are fetched at their final
// URL. A failed download marks only that bookmark failed; the record stays
// in the store so the report can show it as content unavailable.
func (d *Downloader) Download(ctx context.Context, st *store.Store) error {
	eligible := st.Where(func(b *models.Bookmark) bool {
		return b.Status == models.StatusChecked && b.Liveness != nil &&
			(b.Liveness.State == models.LivenessReachable || b.Liveness.State == models.LivenessRedirected)
	})
	if len(eligible) == 0 {
		return nil
	}
	d.logger.Info("downloading content", "count", len(eligible), "workers", d.workers)

	jobs := make(chan *models.Bookmark, len(eligible))
	var wg sync.WaitGroup
	for w := 0; w < d.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				if ctx.Err() != nil {
					return
				}
				d.downloadOne(ctx, b)
			}
		}()
	}
	for _, b := range eligible {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	return ctx.Err()
}

func (d *Downloader) downloadOne(ctx context.Context, b *models.Bookmark) {
	target := b.TargetURL()

	// Cached content from an earlier run short-circuits the fetch. The
	// response header is gone by now, so the type is sniffed from the bytes.
	if data, fresh, err := d.content.Get(target); err == nil && fresh {
		path, perr := d.content.Path(target)
		if perr == nil {
			b.Content = &models.Content{
				Path:      path,
				SizeBytes: int64(len(data)),
				MIMEType:  http.DetectContentType(data),
				FetchedAt: time.Now().UTC(),
			}
			b.Status = models.StatusDownloaded
			d.logger.Debug("content from cache", "url", target)
			return
		}
	}

	release, err := d.limiter.Acquire(ctx, target)
	if err != nil {
		return // canceled; leave for the next run
	}
	data, mimeType, err := d.fetcher.Fetch(ctx, target)
	release()

	if ctx.Err() != nil {
		return
	}
	if err != nil {
		b.MarkFailed("download", err.Error())
		if d.ledger != nil {
			if lerr := d.ledger.RecordAccess(b.ID, target, 0, "download_error", false); lerr != nil {
				d.logger.Warn("failed to record access", "url", target, "error", lerr)
			}
		}
		d.logger.Warn("download failed", "url", target, "error", err)
		return
	}

	path, err := d.content.Put(target, data)
	if err != nil {
		b.MarkFailed("download", err.Error())
		d.logger.Warn("content store write failed", "url", target, "error", err)
		return
	}

	b.Content = &models.Content{
		Path:      path,
		SizeBytes: int64(len(data)),
		MIMEType:  mimeType,
		FetchedAt: time.Now().UTC(),
	}
	b.Status = models.StatusDownloaded
	d.logger.Debug("downloaded", "url", target, "bytes", len(data))
}
