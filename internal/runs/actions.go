// Package runs implements the `runs` CLI command: a listing of past audit
// runs from the sqlite ledger.
package runs

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/mlaurent/bookmark-audit/pkg/db"
)

// ListAction prints the most recent runs, newest first.
func ListAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	database, err := db.Open(c.String("output-dir"))
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(2)
	}
	defer database.Close()

	records, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		logger.Error("failed to list runs", "error", err)
		os.Exit(2)
	}
	if len(records) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tSTARTED\tURLS\tLAST STAGE\tSTATUS")
	for _, r := range records {
		status := "in progress"
		if r.FinishedAt != nil {
			status = "finished"
		}
		lastStage := r.LastStage
		if lastStage == "" {
			lastStage = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.RunID, r.StartedAt.Format("2006-01-02 15:04"), r.URLCount, lastStage, status)
	}
	return w.Flush()
}
