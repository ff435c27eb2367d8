package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// InsertRun registers a run. Re-registering the same run (a resume) keeps
// the original row and refreshes the url count.
func (db *DB) InsertRun(runID, exportPath string, urlCount int) error {
	_, err := db.Exec(`
		INSERT INTO runs (run_id, export_path, url_count)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET url_count = excluded.url_count
	`, runID, exportPath, urlCount)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// UpdateRunStage records the latest completed stage for a run.
func (db *DB) UpdateRunStage(runID, stage string) error {
	_, err := db.Exec("UPDATE runs SET last_stage = ? WHERE run_id = ?", stage, runID)
	if err != nil {
		return fmt.Errorf("failed to update run stage: %w", err)
	}
	return nil
}

// FinishRun stamps the run complete.
func (db *DB) FinishRun(runID string) error {
	_, err := db.Exec("UPDATE runs SET finished_at = CURRENT_TIMESTAMP WHERE run_id = ?", runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// InsertURL registers a bookmark identity. Already-known IDs are left
// untouched.
func (db *DB) InsertURL(bookmarkID, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	var existing string
	err = db.QueryRow("SELECT bookmark_id FROM urls WHERE bookmark_id = ?", bookmarkID).Scan(&existing)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check existing URL: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO urls (bookmark_id, original_url, domain)
		VALUES (?, ?, ?)
	`, bookmarkID, rawURL, parsed.Hostname())
	if err != nil {
		return fmt.Errorf("failed to insert URL: %w", err)
	}
	return nil
}

// RecordAccess records one network attempt against a bookmark. The URL
// row is created on demand so callers need not pre-register redirect
// targets.
func (db *DB) RecordAccess(bookmarkID, rawURL string, statusCode int, errorType string, success bool) error {
	if err := db.InsertURL(bookmarkID, rawURL); err != nil {
		return err
	}
	_, err := db.Exec(`
		INSERT INTO url_accesses (bookmark_id, status_code, error_type, success)
		VALUES (?, ?, ?, ?)
	`, bookmarkID, statusCode, errorType, success)
	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

// RunRecord is one row of the runs table.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	ExportPath string
	URLCount   int
	LastStage  string
	FinishedAt *time.Time
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT run_id, started_at, export_path, url_count, last_stage, finished_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		var lastStage sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.ExportPath, &r.URLCount, &lastStage, &finishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.LastStage = lastStage.String
		if finishedAt.Valid {
			t := finishedAt.Time
			r.FinishedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return out, nil
}

// AccessStats summarizes the access history for one bookmark.
type AccessStats struct {
	Total     int
	Successes int
	LastAt    *time.Time
}

// GetAccessStats returns attempt counts for a bookmark.
func (db *DB) GetAccessStats(bookmarkID string) (AccessStats, error) {
	var s AccessStats
	var lastAt sql.NullTime
	err := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(success), 0), MAX(accessed_at)
		FROM url_accesses
		WHERE bookmark_id = ?
	`, bookmarkID).Scan(&s.Total, &s.Successes, &lastAt)
	if err != nil {
		return s, fmt.Errorf("failed to get access stats: %w", err)
	}
	if lastAt.Valid {
		t := lastAt.Time
		s.LastAt = &t
	}
	return s, nil
}
