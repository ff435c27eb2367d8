package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

func sampleStore() *store.Store {
	st := store.New()
	st.Add(&models.Bookmark{
		ID:       "aaa",
		URL:      "https://keep.example.com/",
		Title:    "Keeper",
		Status:   models.StatusRecommended,
		Category: "tech/development",
		Liveness: &models.Liveness{State: models.LivenessReachable, HTTPStatus: 200},
		Features: &models.Features{QualityScore: 0.85},
		Recommendation: &models.Recommendation{
			Action:    models.ActionKeep,
			Rationale: "reachable with good content quality (score 0.85)",
		},
	})
	st.Add(&models.Bookmark{
		ID:       "bbb",
		URL:      "https://dead.example.com/",
		Status:   models.StatusRecommended,
		Liveness: &models.Liveness{State: models.LivenessDead, HTTPStatus: 404},
		Recommendation: &models.Recommendation{
			Action:    models.ActionDelete,
			Rationale: "URL is dead (HTTP 404)",
		},
	})
	failed := &models.Bookmark{
		ID:       "ccc",
		URL:      "https://broken.example.com/",
		Status:   models.StatusChecked,
		Liveness: &models.Liveness{State: models.LivenessReachable, HTTPStatus: 200},
		Recommendation: &models.Recommendation{
			Action:    models.ActionReview,
			Rationale: "processing stopped at download stage: unexpected status 500",
		},
	}
	failed.MarkFailed("download", "unexpected status 500")
	st.Add(failed)
	st.SetClusters([]*models.DuplicateCluster{})
	return st
}

func TestWrite_ProducesBothFiles(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "run-1", nil)

	if err := w.Write(context.Background(), sampleStore()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	for _, name := range []string{"summary.yaml", "recommendations.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestWrite_Summary(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "run-1", nil)
	w.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	if err := w.Write(context.Background(), sampleStore()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "summary.yaml"))
	if err != nil {
		t.Fatalf("read summary.yaml failed: %v", err)
	}
	var s Summary
	if err := yaml.Unmarshal(data, &s); err != nil {
		t.Fatalf("parse summary.yaml failed: %v", err)
	}

	if s.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", s.RunID)
	}
	if s.Total != 3 {
		t.Errorf("total = %d, want 3", s.Total)
	}
	if s.ByAction["keep"] != 1 || s.ByAction["delete"] != 1 || s.ByAction["review"] != 1 {
		t.Errorf("by_action = %v, want one keep, one delete, one review", s.ByAction)
	}
	if s.ByLiveness["dead"] != 1 {
		t.Errorf("by_liveness = %v, want one dead", s.ByLiveness)
	}
	if s.FailedBookmarks != 1 {
		t.Errorf("failed_bookmarks = %d, want 1", s.FailedBookmarks)
	}
}

func TestWrite_CSVContents(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, "run-1", nil)

	if err := w.Write(context.Background(), sampleStore()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "recommendations.csv"))
	if err != nil {
		t.Fatalf("open csv failed: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("csv has %d rows, want header + 3", len(rows))
	}

	header := rows[0]
	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}

	// Destructive actions sort first.
	if rows[1][col["action"]] != "delete" {
		t.Errorf("first row action = %q, want delete", rows[1][col["action"]])
	}

	byID := map[string][]string{}
	for _, r := range rows[1:] {
		byID[r[col["id"]]] = r
	}

	keep := byID["aaa"]
	if keep[col["quality_score"]] != "0.85" {
		t.Errorf("quality_score = %q, want 0.85", keep[col["quality_score"]])
	}
	if keep[col["category"]] != "tech/development" {
		t.Errorf("category = %q, want tech/development", keep[col["category"]])
	}

	// The failed bookmark stays visible, flagged as content unavailable.
	broken := byID["ccc"]
	if broken == nil {
		t.Fatal("failed bookmark missing from csv")
	}
	if !strings.Contains(broken[col["note"]], "content unavailable") {
		t.Errorf("note = %q, want content unavailable flag", broken[col["note"]])
	}
}

func TestWrite_PreservesStoreOrder(t *testing.T) {
	// The csv sorts a copy; checkpoint serialization relies on the store's
	// insertion order staying intact.
	dir := t.TempDir()
	st := sampleStore()
	w := New(dir, "run-1", nil)
	if err := w.Write(context.Background(), st); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	all := st.All()
	wantOrder := []string{"aaa", "bbb", "ccc"}
	for i, b := range all {
		if b.ID != wantOrder[i] {
			t.Errorf("store order[%d] = %q, want %q", i, b.ID, wantOrder[i])
		}
	}
}
