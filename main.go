package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/mlaurent/bookmark-audit/internal/audit"
	"github.com/mlaurent/bookmark-audit/internal/report"
	"github.com/mlaurent/bookmark-audit/internal/runs"
	"github.com/mlaurent/bookmark-audit/pkg/pipeline"
)

func main() {
	app := &cli.App{
		Name:  "bookmark-audit",
		Usage: "audit a browser bookmark export: liveness, quality, duplicates, recommendations",
		Commands: []*cli.Command{
			{
				Name:      "audit",
				Usage:     "run the audit pipeline over a bookmark export",
				ArgsUsage: "[export.html]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "export",
						Aliases: []string{"e"},
						Usage:   "path to the Netscape-format bookmark export",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Value:   "audit-output",
						Usage:   "directory for reports, content, checkpoints and the run database",
					},
					&cli.StringFlag{
						Name:  "config",
						Value: "config.yaml",
						Usage: "yaml config file (optional)",
					},
					&cli.StringFlag{
						Name:  "from",
						Value: pipeline.StageExtract,
						Usage: fmt.Sprintf("stage to start from, one of %v (requires --run-id)", pipeline.Order),
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "resume an existing run instead of starting a new one",
					},
					&cli.IntFlag{
						Name:  "max-urls",
						Usage: "limit the number of bookmarks processed (0 = no limit)",
					},
					&cli.Float64Flag{
						Name:  "delay",
						Usage: "per-domain inter-request delay in seconds",
					},
					&cli.IntFlag{
						Name:  "timeout",
						Usage: "request timeout in seconds",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "max concurrent requests",
					},
					&cli.StringFlag{
						Name:  "user-agent",
						Usage: "User-Agent header for all requests",
					},
					&cli.StringFlag{
						Name:  "max-age",
						Value: "24h",
						Usage: "reuse downloaded content younger than this",
					},
					&cli.BoolFlag{
						Name:  "force-fetch",
						Usage: "ignore cached content and re-download everything",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log errors",
					},
				},
				Action: audit.AuditAction,
			},
			{
				Name:  "runs",
				Usage: "list past audit runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Value:   "audit-output",
						Usage:   "directory holding the run database",
					},
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "max runs to show",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log errors",
					},
				},
				Action: runs.ListAction,
			},
			{
				Name:  "report",
				Usage: "regenerate report files from a run's latest checkpoint",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Value:   "audit-output",
						Usage:   "directory holding the run's checkpoints",
					},
					&cli.StringFlag{
						Name:  "run-id",
						Usage: "run whose checkpoint to report from",
					},
					&cli.BoolFlag{
						Name:  "quiet",
						Usage: "only log errors",
					},
				},
				Action: report.RegenerateAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
