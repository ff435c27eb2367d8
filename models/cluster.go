package models

// DuplicateCluster is a transitively-closed set of bookmarks judged
// equivalent in content or target. Never mutated after creation within a
// run; a new run recomputes clusters from scratch.
type DuplicateCluster struct {
	ID             string   `json:"id"`
	Members        []string `json:"members"` // bookmark IDs, sorted
	Representative string   `json:"representative"`
}
