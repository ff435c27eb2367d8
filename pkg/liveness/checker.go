package liveness

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/ratelimit"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Ledger records probe attempts for the run history. Implemented by the
// sqlite database; a nil ledger disables recording.
type Ledger interface {
	RecordAccess(bookmarkID, url string, statusCode int, errorType string, success bool) error
}

// Checker runs the check stage: probe every pending bookmark with bounded
// concurrency and populate its liveness block.
type Checker struct {
	prober  Prober
	limiter *ratelimit.Limiter
	ledger  Ledger
	retries int
	workers int
	logger  *slog.Logger
}

// NewChecker builds a checker. retries bounds extra attempts after a
// timeout; dead and tls_error outcomes are conclusive and never retried.
func NewChecker(prober Prober, limiter *ratelimit.Limiter, ledger Ledger, cfg models.Config, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		prober:  prober,
		limiter: limiter,
		ledger:  ledger,
		retries: cfg.TimeoutRetries,
		workers: cfg.Concurrency,
		logger:  logger,
	}
}

// Check probes all pending bookmarks. Each bookmark appears exactly once
// in the output; per-bookmark probe outcomes, including dead and timeout,
// still advance the record to checked. Only a canceled context aborts the
// stage.
func (c *Checker) Check(ctx context.Context, st *store.Store) error {
	pending := st.Where(func(b *models.Bookmark) bool { return b.Status == models.StatusPending })
	if len(pending) == 0 {
		return nil
	}
	c.logger.Info("checking URLs", "count", len(pending), "workers", c.workers)

	jobs := make(chan *models.Bookmark, len(pending))
	var wg sync.WaitGroup
	for w := 0; w < c.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				if ctx.Err() != nil {
					return
				}
				c.checkOne(ctx, b)
			}
		}()
	}
	for _, b := range pending {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	reachable, redirected := 0, 0
	for _, b := range pending {
		if b.Liveness == nil {
			continue
		}
		switch b.Liveness.State {
		case models.LivenessReachable:
			reachable++
		case models.LivenessRedirected:
			redirected++
		}
	}
	c.logger.Info("check complete", "reachable", reachable, "redirected", redirected, "other", len(pending)-reachable-redirected)
	return nil
}

func (c *Checker) checkOne(ctx context.Context, b *models.Bookmark) {
	res, err := c.probeWithRetry(ctx, b.URL)
	if ctx.Err() != nil {
		// Canceled mid-probe: leave the bookmark pending so the aborted
		// stage is not checkpointed as complete for it.
		return
	}

	live := &models.Liveness{
		LatencyMs: res.Elapsed.Milliseconds(),
		CheckedAt: time.Now().UTC(),
	}

	switch {
	case err == nil && len(res.StatusChain) == 0:
		// A prober reporting success without any status has nothing usable.
		live.State = models.LivenessDead
	case err == nil:
		final := res.StatusChain[len(res.StatusChain)-1]
		live.HTTPStatus = final
		switch {
		case final >= 200 && final < 300 && len(res.StatusChain) == 1:
			live.State = models.LivenessReachable
		case final >= 200 && final < 300:
			live.State = models.LivenessRedirected
			live.FinalURL = res.FinalURL
		default:
			live.State = models.LivenessDead
		}
	case errors.Is(err, ErrTimeout):
		live.State = models.LivenessTimeout
	case errors.Is(err, ErrTLS):
		live.State = models.LivenessTLSError
	default:
		live.State = models.LivenessDead
	}

	b.Liveness = live
	b.Status = models.StatusChecked

	if c.ledger != nil {
		ok := live.State == models.LivenessReachable || live.State == models.LivenessRedirected
		errType := ""
		if !ok {
			errType = string(live.State)
		}
		if lerr := c.ledger.RecordAccess(b.ID, b.URL, live.HTTPStatus, errType, ok); lerr != nil {
			c.logger.Warn("failed to record access", "url", b.URL, "error", lerr)
		}
	}
	c.logger.Debug("checked", "url", b.URL, "state", string(live.State), "status", live.HTTPStatus)
}

// probeWithRetry applies the bounded retry policy: at most c.retries extra
// attempts, and only after a timeout.
func (c *Checker) probeWithRetry(ctx context.Context, rawURL string) (Result, error) {
	var res Result
	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		release, lerr := c.limiter.Acquire(ctx, rawURL)
		if lerr != nil {
			return Result{}, lerr
		}
		res, err = c.prober.Probe(ctx, rawURL)
		release()
		if err == nil || !errors.Is(err, ErrTimeout) {
			return res, err
		}
	}
	return res, err
}
