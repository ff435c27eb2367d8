// Package checkpoint persists and restores pipeline snapshots so a run can
// resume at any stage boundary. Each completed stage writes a new snapshot
// file; earlier snapshots are superseded but never deleted.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mlaurent/bookmark-audit/models"
)

// IndexEntry summarizes one snapshot in the run's index.yaml.
type IndexEntry struct {
	File            string    `yaml:"file"`
	Stage           string    `yaml:"stage"`
	CreatedAt       time.Time `yaml:"created_at"`
	CompletedStages []string  `yaml:"completed_stages"`
	BookmarkCount   int       `yaml:"bookmark_count"`
}

// Index is the checkpoints/<run>/index.yaml file.
type Index struct {
	RunID       string       `yaml:"run_id"`
	Checkpoints []IndexEntry `yaml:"checkpoints"`
}

// Manager owns all checkpoint writes for a run. Nothing else writes under
// its directory.
type Manager struct {
	dir   string
	runID string
}

// NewManager creates the checkpoint directory for a run under outputDir.
func NewManager(outputDir, runID string) (*Manager, error) {
	dir := filepath.Join(outputDir, "checkpoints", runID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &Manager{dir: dir, runID: runID}, nil
}

// Dir returns the run's checkpoint directory.
func (m *Manager) Dir() string { return m.dir }

// Save writes a snapshot after the named stage completed and appends it to
// the index. The file name is sequence-prefixed so lexical order matches
// pipeline order.
func (m *Manager) Save(ck *models.Checkpoint, stage string) (string, error) {
	ck.SchemaVersion = models.CheckpointSchemaVersion
	ck.RunID = m.runID
	if ck.CreatedAt.IsZero() {
		ck.CreatedAt = time.Now().UTC()
	}

	name := fmt.Sprintf("%02d-%s.json", len(ck.CompletedStages), stage)
	path := filepath.Join(m.dir, name)

	data, err := json.MarshalIndent(ck, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal checkpoint: %w", err)
	}

	// Write via a temp file so an interrupted run never leaves a truncated
	// snapshot that a resume would mistake for complete.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit checkpoint: %w", err)
	}

	if err := m.appendIndex(IndexEntry{
		File:            name,
		Stage:           stage,
		CreatedAt:       ck.CreatedAt,
		CompletedStages: ck.CompletedStages,
		BookmarkCount:   len(ck.Bookmarks),
	}); err != nil {
		return "", err
	}
	return path, nil
}

// Latest loads the most recent snapshot for the run, or nil when the run
// has no checkpoints yet.
func (m *Manager) Latest() (*models.Checkpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("read checkpoint directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)
	return Load(filepath.Join(m.dir, names[len(names)-1]))
}

// Load reads and validates a snapshot file. An unreadable or incompatible
// checkpoint is fatal to the caller.
func Load(path string) (*models.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read checkpoint %s: %w", path, err)
	}
	var ck models.Checkpoint
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", path, err)
	}
	if ck.SchemaVersion != models.CheckpointSchemaVersion {
		return nil, fmt.Errorf("checkpoint %s has schema version %d, want %d", path, ck.SchemaVersion, models.CheckpointSchemaVersion)
	}
	return &ck, nil
}

func (m *Manager) appendIndex(entry IndexEntry) error {
	indexPath := filepath.Join(m.dir, "index.yaml")

	idx := Index{RunID: m.runID}
	if data, err := os.ReadFile(filepath.Clean(indexPath)); err == nil {
		if err := yaml.Unmarshal(data, &idx); err != nil {
			return fmt.Errorf("parse checkpoint index: %w", err)
		}
	}

	idx.Checkpoints = append(idx.Checkpoints, entry)

	data, err := yaml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("marshal checkpoint index: %w", err)
	}
	if err := os.WriteFile(indexPath, data, 0600); err != nil {
		return fmt.Errorf("write checkpoint index: %w", err)
	}
	return nil
}
