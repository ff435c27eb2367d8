// Package recommend assigns each bookmark a final disposition. Rules fire
// in fixed precedence; the first matching rule wins, so a dead bookmark is
// never kept no matter how good its content once was.
package recommend

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Engine runs the recommend stage.
type Engine struct {
	qualityLow  float64
	qualityHigh float64
	logger      *slog.Logger
}

// New builds an engine with the configured quality thresholds.
func New(cfg models.Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		qualityLow:  cfg.QualityLow,
		qualityHigh: cfg.QualityHigh,
		logger:      logger,
	}
}

// Recommend assigns an action to every bookmark still in the pipeline,
// plus the ones that dropped out at the liveness check (a dead URL is the
// strongest signal to delete and must not vanish from the report).
func (e *Engine) Recommend(ctx context.Context, st *store.Store) error {
	eligible := st.Where(func(b *models.Bookmark) bool {
		return b.Status == models.StatusDeduplicated || b.Status == models.StatusChecked || b.Failed()
	})
	e.logger.Info("building recommendations", "count", len(eligible))

	counts := map[models.Action]int{}
	for _, b := range eligible {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec := e.decide(b, st)
		b.Recommendation = &rec
		if !b.Failed() {
			b.Status = models.StatusRecommended
		}
		counts[rec.Action]++
	}

	e.logger.Info("recommendations complete",
		"keep", counts[models.ActionKeep],
		"update", counts[models.ActionUpdate],
		"archive", counts[models.ActionArchive],
		"delete", counts[models.ActionDelete],
		"replace", counts[models.ActionReplace],
		"review", counts[models.ActionReview])
	return nil
}

// decide walks the precedence ladder top to bottom.
func (e *Engine) decide(b *models.Bookmark, st *store.Store) models.Recommendation {
	if b.Liveness != nil {
		switch b.Liveness.State {
		case models.LivenessDead:
			return models.Recommendation{
				Action:    models.ActionDelete,
				Rationale: fmt.Sprintf("URL is dead (HTTP %d)", b.Liveness.HTTPStatus),
			}
		case models.LivenessTLSError:
			return models.Recommendation{
				Action:    models.ActionDelete,
				Rationale: "TLS certificate verification failed",
			}
		case models.LivenessTimeout:
			return models.Recommendation{
				Action:    models.ActionReview,
				Rationale: "URL timed out after retries; may be temporarily unreachable",
			}
		case models.LivenessRedirected:
			return models.Recommendation{
				Action:    models.ActionUpdate,
				Rationale: fmt.Sprintf("URL redirects to %s", b.Liveness.FinalURL),
			}
		}
	}

	if b.ClusterID != "" {
		if c := st.Cluster(b.ClusterID); c != nil && c.Representative != b.ID {
			return models.Recommendation{
				Action:    models.ActionReplace,
				Rationale: fmt.Sprintf("duplicate of %s", representativeURL(c, st)),
			}
		}
	}

	if b.Failed() {
		return models.Recommendation{
			Action:    models.ActionReview,
			Rationale: fmt.Sprintf("processing stopped at %s stage: %s", b.FailedStage, b.FailureCause),
		}
	}

	if b.Features != nil {
		q := b.Features.QualityScore
		switch {
		case q < e.qualityLow:
			return models.Recommendation{
				Action:    models.ActionArchive,
				Rationale: fmt.Sprintf("low content quality (score %.2f)", q),
			}
		case q > e.qualityHigh:
			return models.Recommendation{
				Action:    models.ActionKeep,
				Rationale: fmt.Sprintf("reachable with good content quality (score %.2f)", q),
			}
		}
	}

	return models.Recommendation{
		Action:    models.ActionReview,
		Rationale: "no rule produced a confident action",
	}
}

func representativeURL(c *models.DuplicateCluster, st *store.Store) string {
	if rep := st.Get(c.Representative); rep != nil {
		return rep.URL
	}
	return c.Representative
}
