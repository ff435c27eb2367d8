// Package report implements the `report` CLI command: regenerate the
// report files from a run's latest checkpoint without touching the
// network.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mlaurent/bookmark-audit/pkg/checkpoint"
	"github.com/mlaurent/bookmark-audit/pkg/report"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

// RegenerateAction rebuilds summary.yaml and recommendations.csv from the
// newest snapshot of the given run.
func RegenerateAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	runID := c.String("run-id")
	if runID == "" {
		fmt.Fprintln(os.Stderr, "Error: --run-id is required")
		fmt.Fprintln(os.Stderr, "List runs with: bookmark-audit runs")
		os.Exit(1)
	}

	outputDir := c.String("output-dir")
	ckpt, err := checkpoint.NewManager(outputDir, runID)
	if err != nil {
		logger.Error("failed to open checkpoints", "error", err)
		os.Exit(2)
	}

	ck, err := ckpt.Latest()
	if err != nil {
		logger.Error("failed to load checkpoint", "error", err)
		os.Exit(2)
	}
	if ck == nil {
		fmt.Fprintf(os.Stderr, "Error: run %s has no checkpoints under %s\n", runID, ckpt.Dir())
		os.Exit(1)
	}

	st, err := store.FromCheckpoint(ck)
	if err != nil {
		logger.Error("corrupt checkpoint", "error", err)
		os.Exit(2)
	}

	writer := report.New(outputDir, runID, logger)
	if err := writer.Write(context.Background(), st); err != nil {
		logger.Error("failed to write report", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Report regenerated for run %s in %s\n", runID, outputDir)
	return nil
}
