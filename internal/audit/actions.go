// Package audit wires the pipeline components behind the `audit` CLI
// command.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/analyzer"
	"github.com/mlaurent/bookmark-audit/pkg/bookmarks"
	"github.com/mlaurent/bookmark-audit/pkg/categorize"
	"github.com/mlaurent/bookmark-audit/pkg/checkpoint"
	"github.com/mlaurent/bookmark-audit/pkg/contentstore"
	"github.com/mlaurent/bookmark-audit/pkg/db"
	"github.com/mlaurent/bookmark-audit/pkg/dedup"
	"github.com/mlaurent/bookmark-audit/pkg/download"
	"github.com/mlaurent/bookmark-audit/pkg/liveness"
	"github.com/mlaurent/bookmark-audit/pkg/pipeline"
	"github.com/mlaurent/bookmark-audit/pkg/ratelimit"
	"github.com/mlaurent/bookmark-audit/pkg/recommend"
	"github.com/mlaurent/bookmark-audit/pkg/report"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// AuditAction runs the full pipeline, or a suffix of it when --from is
// given.
func AuditAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	exportPath := c.String("export")
	if exportPath == "" && c.Args().Len() > 0 {
		exportPath = c.Args().First()
	}
	if exportPath == "" {
		fmt.Fprintln(os.Stderr, "Error: No bookmark export provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  bookmark-audit audit --export bookmarks.html")
		fmt.Fprintln(os.Stderr, "  bookmark-audit audit --export bookmarks.html --from analyze --run-id <id>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Need help? Run: bookmark-audit audit --help")
		os.Exit(1)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	outputDir := c.String("output-dir")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "error", err)
		os.Exit(2)
	}

	database, err := db.Open(outputDir)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	start := c.String("from")
	runID := c.String("run-id")
	if runID == "" {
		if start != pipeline.StageExtract {
			fmt.Fprintln(os.Stderr, "Error: --from requires --run-id to locate the run's checkpoints")
			os.Exit(1)
		}
		runID = newRunID()
	}
	logger.Info("audit run", "run_id", runID, "from", start, "export", exportPath)

	ckpt, err := checkpoint.NewManager(outputDir, runID)
	if err != nil {
		logger.Error("failed to initialize checkpoints", "error", err)
		os.Exit(2)
	}

	st, completed, err := resumeStore(start, ckpt)
	if err != nil {
		var gap *pipeline.ResumeGapError
		if errors.As(err, &gap) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", gap)
			fmt.Fprintf(os.Stderr, "Rerun from an earlier stage, e.g. --from %s\n", gap.Missing)
			os.Exit(1)
		}
		logger.Error("failed to resume from checkpoint", "error", err)
		os.Exit(2)
	}

	if err := database.InsertRun(runID, exportPath, st.Len()); err != nil {
		logger.Warn("failed to record run", "error", err)
	}

	runner, err := buildRunner(c, cfg, outputDir, runID, exportPath, ckpt, database, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runner.Run(ctx, start, st, completed); err != nil {
		if ctx.Err() != nil {
			logger.Error("run interrupted; resume with --run-id", "run_id", runID)
			os.Exit(130)
		}
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}

	if err := database.FinishRun(runID); err != nil {
		logger.Warn("failed to finish run record", "error", err)
	}

	fmt.Printf("Audit complete. Run %s\nResults: %s\n", runID, outputDir)
	return nil
}

// loadConfig layers CLI flag overrides on the yaml config.
func loadConfig(c *cli.Context) (models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("max-urls") {
		cfg.MaxURLs = c.Int("max-urls")
	}
	if c.IsSet("delay") {
		cfg.DelaySeconds = c.Float64("delay")
	}
	if c.IsSet("timeout") {
		cfg.TimeoutSeconds = c.Int("timeout")
	}
	if c.IsSet("user-agent") {
		cfg.UserAgent = c.String("user-agent")
	}
	if c.IsSet("workers") {
		cfg.Concurrency = c.Int("workers")
	}
	return cfg, cfg.Validate()
}

// resumeStore loads the prior checkpoint when resuming mid-pipeline, or
// returns an empty store for a fresh run.
func resumeStore(start string, ckpt *checkpoint.Manager) (*store.Store, []string, error) {
	if start == pipeline.StageExtract {
		return store.New(), nil, nil
	}
	ck, err := ckpt.Latest()
	if err != nil {
		return nil, nil, err
	}
	if err := pipeline.ValidateResume(start, ck); err != nil {
		return nil, nil, err
	}
	st, err := store.FromCheckpoint(ck)
	if err != nil {
		return nil, nil, err
	}
	return st, ck.CompletedStages, nil
}

func buildRunner(c *cli.Context, cfg models.Config, outputDir, runID, exportPath string, ckpt *checkpoint.Manager, database *db.DB, logger *slog.Logger) (*pipeline.Runner, error) {
	var maxAge time.Duration
	if !c.Bool("force-fetch") {
		var err error
		maxAge, err = time.ParseDuration(c.String("max-age"))
		if err != nil {
			return nil, fmt.Errorf("invalid max-age duration: %w", err)
		}
	}

	content, err := contentstore.New(outputDir, maxAge)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.New(ratelimit.Config{
		Global:      cfg.Concurrency,
		PerDomain:   cfg.PerDomainMax,
		DomainDelay: cfg.DomainDelay(),
	})

	extractor := bookmarks.NewExtractor(exportPath, cfg, logger)
	prober := liveness.NewHTTPProber(cfg.Timeout(), cfg.UserAgent)
	checker := liveness.NewChecker(prober, limiter, database, cfg, logger)
	fetcher := download.NewHTTPFetcher(cfg.Timeout(), cfg.UserAgent, cfg.MaxContentBytes)
	downloader := download.NewDownloader(fetcher, content, limiter, database, cfg, logger)
	analyze := analyzer.New(analyzer.ReadabilityExtractor{}, logger)
	categorizer := categorize.New(logger)
	detector := dedup.New(cfg, logger)
	engine := recommend.New(cfg, logger)
	reporter := report.New(outputDir, runID, logger)

	stages := map[string]pipeline.StageFunc{
		pipeline.StageExtract:     registerURLs(extractor.Extract, runID, exportPath, database, logger),
		pipeline.StageCheck:       checker.Check,
		pipeline.StageDownload:    downloader.Download,
		pipeline.StageAnalyze:     analyze.Analyze,
		pipeline.StageCategorize:  categorizer.Categorize,
		pipeline.StageDeduplicate: detector.Detect,
		pipeline.StageRecommend:   engine.Recommend,
		pipeline.StageReport:      reporter.Write,
	}
	for name, fn := range stages {
		stages[name] = trackStage(name, fn, runID, database, logger)
	}

	return pipeline.NewRunner(stages, ckpt, cfg, logger), nil
}

// registerURLs wraps the extract stage to mirror the parsed bookmarks into
// the ledger's urls table and refresh the run's url count.
func registerURLs(fn pipeline.StageFunc, runID, exportPath string, database *db.DB, logger *slog.Logger) pipeline.StageFunc {
	return func(ctx context.Context, st *store.Store) error {
		if err := fn(ctx, st); err != nil {
			return err
		}
		for _, b := range st.All() {
			if err := database.InsertURL(b.ID, b.URL); err != nil {
				logger.Warn("failed to register URL", "url", b.URL, "error", err)
			}
		}
		if err := database.InsertRun(runID, exportPath, st.Len()); err != nil {
			logger.Warn("failed to update run url count", "error", err)
		}
		return nil
	}
}

// trackStage wraps a stage to record its completion in the runs table.
func trackStage(name string, fn pipeline.StageFunc, runID string, database *db.DB, logger *slog.Logger) pipeline.StageFunc {
	return func(ctx context.Context, st *store.Store) error {
		if err := fn(ctx, st); err != nil {
			return err
		}
		if err := database.UpdateRunStage(runID, name); err != nil {
			logger.Warn("failed to update run stage", "stage", name, "error", err)
		}
		return nil
	}
}

func newRunID() string {
	return fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
}
