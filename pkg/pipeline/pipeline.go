// Package pipeline implements the stage runner: it drives the record store
// through the ordered stages, checkpointing after each one and deciding the
// resume point from a prior checkpoint.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/checkpoint"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Stage names, in execution order.
const (
	StageExtract     = "extract"
	StageCheck       = "check"
	StageDownload    = "download"
	StageAnalyze     = "analyze"
	StageCategorize  = "categorize"
	StageDeduplicate = "deduplicate"
	StageRecommend   = "recommend"
	StageReport      = "report"
)

// Order is the fixed stage sequence.
var Order = []string{
	StageExtract,
	StageCheck,
	StageDownload,
	StageAnalyze,
	StageCategorize,
	StageDeduplicate,
	StageRecommend,
	StageReport,
}

// StageFunc runs one whole-batch stage over the store. Per-bookmark
// failures are contained inside the stage; a returned error is fatal and
// aborts the run.
type StageFunc func(ctx context.Context, st *store.Store) error

// ResumeGapError reports a resume request past a stage that never
// completed.
type ResumeGapError struct {
	Requested string
	Missing   string
}

func (e *ResumeGapError) Error() string {
	return fmt.Sprintf("cannot resume at stage %q: prerequisite stage %q has not completed", e.Requested, e.Missing)
}

// UnknownStageError reports a stage name outside the fixed order.
type UnknownStageError struct{ Stage string }

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q", e.Stage)
}

// StageIndex returns the position of a stage in the order, or an error for
// an unknown name.
func StageIndex(name string) (int, error) {
	for i, s := range Order {
		if s == name {
			return i, nil
		}
	}
	return 0, &UnknownStageError{Stage: name}
}

// Runner executes the pipeline stages in order.
type Runner struct {
	stages map[string]StageFunc
	ckpt   *checkpoint.Manager
	cfg    models.Config
	logger *slog.Logger
}

// NewRunner builds a runner over the given stage implementations.
func NewRunner(stages map[string]StageFunc, ckpt *checkpoint.Manager, cfg models.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{stages: stages, ckpt: ckpt, cfg: cfg, logger: logger}
}

// ValidateResume checks that a checkpoint's completed set covers every
// stage strictly before the requested start. Returns ResumeGapError on a
// gap. A nil checkpoint is only valid when starting from the first stage.
func ValidateResume(start string, ck *models.Checkpoint) error {
	idx, err := StageIndex(start)
	if err != nil {
		return err
	}
	for _, prior := range Order[:idx] {
		if ck == nil || !ck.Completed(prior) {
			return &ResumeGapError{Requested: start, Missing: prior}
		}
	}
	return nil
}

// Run executes every stage from start onward, checkpointing after each.
// completed carries the stage set from the loaded checkpoint, if any.
func (r *Runner) Run(ctx context.Context, start string, st *store.Store, completed []string) error {
	idx, err := StageIndex(start)
	if err != nil {
		return err
	}

	done := append([]string(nil), completed...)

	for _, name := range Order[idx:] {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("run canceled before stage %s: %w", name, err)
		}

		fn, ok := r.stages[name]
		if !ok {
			return fmt.Errorf("no implementation registered for stage %s", name)
		}

		r.logger.Info("stage starting", "stage", name, "bookmarks", st.Len())
		if err := fn(ctx, st); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}

		done = appendStage(done, name)
		books, clusters := st.Snapshot()
		path, err := r.ckpt.Save(&models.Checkpoint{
			CompletedStages: done,
			Config:          r.cfg,
			Bookmarks:       books,
			Clusters:        clusters,
		}, name)
		if err != nil {
			return fmt.Errorf("checkpoint after stage %s: %w", name, err)
		}
		r.logger.Info("stage complete", "stage", name, "checkpoint", path)
	}
	return nil
}

func appendStage(stages []string, name string) []string {
	for _, s := range stages {
		if s == name {
			return stages
		}
	}
	return append(stages, name)
}
