// Package report assembles the audit deliverables: a yaml summary of the
// run and a csv listing every bookmark with its recommended action.
// Bookmarks that dropped out mid-pipeline still appear, flagged with the
// stage that failed, so the report accounts for the whole export.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// Summary is the aggregate view serialized to summary.yaml.
type Summary struct {
	RunID       string    `yaml:"run_id"`
	GeneratedAt time.Time `yaml:"generated_at"`
	Total       int       `yaml:"total_bookmarks"`

	ByLiveness map[string]int `yaml:"by_liveness"`
	ByAction   map[string]int `yaml:"by_action"`
	ByCategory map[string]int `yaml:"by_category"`

	DuplicateClusters int `yaml:"duplicate_clusters"`
	FailedBookmarks   int `yaml:"failed_bookmarks"`
}

// Writer runs the report stage.
type Writer struct {
	outputDir string
	runID     string
	now       func() time.Time
	logger    *slog.Logger
}

// New builds a report writer targeting outputDir.
func New(outputDir, runID string, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{outputDir: outputDir, runID: runID, now: time.Now, logger: logger}
}

// Write produces summary.yaml and recommendations.csv and advances no
// statuses; reporting is a read-only view of the store.
func (w *Writer) Write(ctx context.Context, st *store.Store) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	summary := w.buildSummary(st)
	summaryPath := filepath.Join(w.outputDir, "summary.yaml")
	if err := writeYAML(summaryPath, summary); err != nil {
		return err
	}

	csvPath := filepath.Join(w.outputDir, "recommendations.csv")
	if err := w.writeCSV(csvPath, st); err != nil {
		return err
	}

	w.logger.Info("report written", "summary", summaryPath, "recommendations", csvPath)
	return nil
}

func (w *Writer) buildSummary(st *store.Store) Summary {
	s := Summary{
		RunID:       w.runID,
		GeneratedAt: w.now().UTC(),
		Total:       st.Len(),
		ByLiveness:  map[string]int{},
		ByAction:    map[string]int{},
		ByCategory:  map[string]int{},
	}
	for _, b := range st.All() {
		if b.Liveness != nil {
			s.ByLiveness[string(b.Liveness.State)]++
		}
		if b.Recommendation != nil {
			s.ByAction[string(b.Recommendation.Action)]++
		}
		if b.Category != "" {
			s.ByCategory[b.Category]++
		}
		if b.Failed() {
			s.FailedBookmarks++
		}
	}
	s.DuplicateClusters = len(st.Clusters())
	return s
}

var csvHeader = []string{
	"id", "url", "title", "folder", "category",
	"liveness", "final_url", "quality_score",
	"cluster_id", "action", "rationale", "note",
}

// writeCSV emits one row per bookmark, sorted by action then URL so the
// file groups related work for whoever applies it.
func (w *Writer) writeCSV(path string, st *store.Store) error {
	books := st.All()
	sort.SliceStable(books, func(i, j int) bool {
		ai, aj := actionOf(books[i]), actionOf(books[j])
		if ai != aj {
			return actionRank(ai) < actionRank(aj)
		}
		return books[i].URL < books[j].URL
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, b := range books {
		if err := cw.Write(row(b)); err != nil {
			return fmt.Errorf("write csv row for %s: %w", b.ID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func row(b *models.Bookmark) []string {
	liveness, finalURL := "", ""
	if b.Liveness != nil {
		liveness = string(b.Liveness.State)
		finalURL = b.Liveness.FinalURL
	}
	quality := ""
	if b.Features != nil {
		quality = strconv.FormatFloat(b.Features.QualityScore, 'f', 2, 64)
	}
	action, rationale := "", ""
	if b.Recommendation != nil {
		action = string(b.Recommendation.Action)
		rationale = b.Recommendation.Rationale
	}
	note := ""
	if b.Failed() {
		note = fmt.Sprintf("content unavailable: failed at %s (%s)", b.FailedStage, b.FailureCause)
	}
	return []string{
		b.ID, b.URL, b.Title, b.FolderPath, b.Category,
		liveness, finalURL, quality,
		b.ClusterID, action, rationale, note,
	}
}

func actionOf(b *models.Bookmark) models.Action {
	if b.Recommendation == nil {
		return ""
	}
	return b.Recommendation.Action
}

// actionRank orders the csv: destructive actions first so they get eyes.
func actionRank(a models.Action) int {
	switch a {
	case models.ActionDelete:
		return 0
	case models.ActionReplace:
		return 1
	case models.ActionUpdate:
		return 2
	case models.ActionArchive:
		return 3
	case models.ActionReview:
		return 4
	case models.ActionKeep:
		return 5
	default:
		return 6
	}
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
