package models

import "time"

// CheckpointSchemaVersion guards against loading snapshots written by an
// incompatible binary.
const CheckpointSchemaVersion = 1

// Checkpoint is a full snapshot of pipeline state taken after a stage
// completes. Prior checkpoints are superseded, not deleted, so earlier
// stages remain available for inspection and manual rollback.
type Checkpoint struct {
	SchemaVersion   int                 `json:"schema_version"`
	RunID           string              `json:"run_id"`
	CreatedAt       time.Time           `json:"created_at"`
	CompletedStages []string            `json:"completed_stages"`
	Config          Config              `json:"config"`
	Bookmarks       []*Bookmark         `json:"bookmarks"`
	Clusters        []*DuplicateCluster `json:"clusters,omitempty"`
}

// Completed reports whether the named stage finished before this snapshot
// was taken.
func (c *Checkpoint) Completed(stage string) bool {
	for _, s := range c.CompletedStages {
		if s == stage {
			return true
		}
	}
	return false
}
