// Package store implements the bookmark record store: the in-memory
// substrate every pipeline stage reads and writes. The store is owned by
// the stage runner for the duration of a stage; no component retains a
// reference across stage boundaries.
package store

import (
	"fmt"
	"sort"

	"github.com/mlaurent/bookmark-audit/models"
)

// Store keeps bookmarks keyed by their stable ID, preserving insertion
// order so repeated runs produce identical serializations.
type Store struct {
	order    []string
	byID     map[string]*models.Bookmark
	clusters []*models.DuplicateCluster
}

// New returns an empty store.
func New() *Store {
	return &Store{byID: make(map[string]*models.Bookmark)}
}

// FromCheckpoint rebuilds a store from a snapshot.
func FromCheckpoint(ck *models.Checkpoint) (*Store, error) {
	s := New()
	for _, b := range ck.Bookmarks {
		if b.ID == "" {
			return nil, fmt.Errorf("checkpoint contains bookmark without ID (url=%q)", b.URL)
		}
		if _, dup := s.byID[b.ID]; dup {
			return nil, fmt.Errorf("checkpoint contains duplicate bookmark ID %s", b.ID)
		}
		s.order = append(s.order, b.ID)
		s.byID[b.ID] = b
	}
	s.clusters = ck.Clusters
	return s, nil
}

// Add inserts a bookmark. When the ID is already present (the export held
// the same URL twice) the existing record wins and is returned; the export
// does not guarantee unique URLs.
func (s *Store) Add(b *models.Bookmark) *models.Bookmark {
	if existing, ok := s.byID[b.ID]; ok {
		return existing
	}
	s.order = append(s.order, b.ID)
	s.byID[b.ID] = b
	return b
}

// Get returns the bookmark with the given ID, or nil.
func (s *Store) Get(id string) *models.Bookmark {
	return s.byID[id]
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.order) }

// All returns every bookmark in insertion order. The slice is fresh; the
// records are shared.
func (s *Store) All() []*models.Bookmark {
	out := make([]*models.Bookmark, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Where returns bookmarks matching the predicate, in insertion order.
func (s *Store) Where(keep func(*models.Bookmark) bool) []*models.Bookmark {
	var out []*models.Bookmark
	for _, id := range s.order {
		if b := s.byID[id]; keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// SetClusters replaces the duplicate clusters for this run.
func (s *Store) SetClusters(clusters []*models.DuplicateCluster) {
	s.clusters = clusters
}

// Clusters returns the duplicate clusters computed in this run.
func (s *Store) Clusters() []*models.DuplicateCluster {
	return s.clusters
}

// Cluster returns the cluster with the given ID, or nil.
func (s *Store) Cluster(id string) *models.DuplicateCluster {
	for _, c := range s.clusters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Snapshot builds the bookmark and cluster slices for a checkpoint, with
// bookmarks in insertion order and clusters sorted by ID.
func (s *Store) Snapshot() ([]*models.Bookmark, []*models.DuplicateCluster) {
	books := s.All()
	clusters := make([]*models.DuplicateCluster, len(s.clusters))
	copy(clusters, s.clusters)
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return books, clusters
}
