// Package dedup finds duplicate bookmarks: records whose URLs collapse to
// the same page once tracking noise is removed, or whose extracted content
// is near-identical. Pairwise matches are closed transitively so every
// duplicate group becomes one cluster with one representative.
package dedup

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/mlaurent/bookmark-audit/models"
	"github.com/mlaurent/bookmark-audit/pkg/store"
)

const shingleSize = 3

// Detector runs the deduplicate stage.
type Detector struct {
	threshold float64
	logger    *slog.Logger
}

// New builds a detector with the given Jaccard threshold on content
// shingles.
func New(cfg models.Config, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{threshold: cfg.SimilarityThreshold, logger: logger}
}

// Detect clusters every bookmark that reached the categorize stage,
// recomputing the cluster set from scratch so a re-run over an already
// deduplicated store reproduces the same clusters instead of dropping
// them. Categorized inputs advance to the deduplicated status; only
// members of a multi-bookmark cluster get a cluster ID.
func (d *Detector) Detect(ctx context.Context, st *store.Store) error {
	eligible := st.Where(func(b *models.Bookmark) bool { return pastCategorize(b.Status) })
	d.logger.Info("detecting duplicates", "count", len(eligible))

	uf := newUnionFind()
	ids := make([]string, 0, len(eligible))
	routes := make(map[string]string) // canonical route -> first bookmark ID
	shingles := make(map[string]map[string]struct{})

	for _, b := range eligible {
		ids = append(ids, b.ID)
		uf.find(b.ID)

		if route, err := canonicalRoute(b.URL); err == nil {
			if first, seen := routes[route]; seen {
				uf.union(b.ID, first)
			} else {
				routes[route] = b.ID
			}
		}
		if b.Features != nil && b.Features.ExtractedText != "" {
			if sh := shingleSet(b.Features.ExtractedText); len(sh) > 0 {
				shingles[b.ID] = sh
			}
		}
	}

	// Content similarity is pairwise over bookmarks with usable text. The
	// corpus is a personal bookmark export, so quadratic is acceptable.
	withText := make([]string, 0, len(shingles))
	for id := range shingles {
		withText = append(withText, id)
	}
	sort.Strings(withText)
	for i := 0; i < len(withText); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for j := i + 1; j < len(withText); j++ {
			if jaccard(shingles[withText[i]], shingles[withText[j]]) >= d.threshold {
				uf.union(withText[i], withText[j])
			}
		}
	}

	// Cluster membership is rebuilt below, so stale IDs from a prior run
	// must not survive on bookmarks that no longer belong to a cluster.
	for _, b := range eligible {
		b.ClusterID = ""
	}
	clusters := d.buildClusters(uf, ids, st)
	st.SetClusters(clusters)

	for _, b := range eligible {
		if b.Status == models.StatusCategorized {
			b.Status = models.StatusDeduplicated
		}
	}
	d.logger.Info("deduplication complete", "clusters", len(clusters))
	return nil
}

// pastCategorize reports whether a bookmark carries the data clustering
// works from. Failed bookmarks and ones still upstream are excluded.
func pastCategorize(s models.Status) bool {
	switch s {
	case models.StatusCategorized, models.StatusDeduplicated, models.StatusRecommended:
		return true
	}
	return false
}

// buildClusters materializes multi-member sets into clusters with stable
// IDs and a chosen representative.
func (d *Detector) buildClusters(uf *unionFind, ids []string, st *store.Store) []*models.DuplicateCluster {
	var clusters []*models.DuplicateCluster
	for _, members := range uf.sets(ids) {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		c := &models.DuplicateCluster{
			ID:             clusterID(members),
			Members:        members,
			Representative: pickRepresentative(members, st),
		}
		for _, id := range members {
			if b := st.Get(id); b != nil {
				b.ClusterID = c.ID
			}
		}
		clusters = append(clusters, c)
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters
}

// clusterID hashes the sorted member list so the same group always gets
// the same ID regardless of discovery order.
func clusterID(sortedMembers []string) string {
	h := sha256.Sum256([]byte(strings.Join(sortedMembers, "\n")))
	return fmt.Sprintf("dup-%x", h[:4])
}

// pickRepresentative prefers the highest quality score, then the earliest
// AddedAt, then the lexicographically smallest URL.
func pickRepresentative(members []string, st *store.Store) string {
	best := members[0]
	for _, id := range members[1:] {
		if better(st.Get(id), st.Get(best)) {
			best = id
		}
	}
	return best
}

func better(a, b *models.Bookmark) bool {
	qa, qb := quality(a), quality(b)
	if qa != qb {
		return qa > qb
	}
	if !a.AddedAt.Equal(b.AddedAt) {
		if a.AddedAt.IsZero() || b.AddedAt.IsZero() {
			return !a.AddedAt.IsZero()
		}
		return a.AddedAt.Before(b.AddedAt)
	}
	return a.URL < b.URL
}

func quality(b *models.Bookmark) float64 {
	if b == nil || b.Features == nil {
		return 0
	}
	return b.Features.QualityScore
}

// trackingParams are query keys that identify a visit, not a page.
var trackingParams = map[string]struct{}{
	"gclid": {}, "fbclid": {}, "ref": {}, "source": {}, "mc_cid": {}, "mc_eid": {},
}

// canonicalRoute collapses a URL to its page identity: normalized form
// with tracking query parameters removed.
func canonicalRoute(rawURL string) (string, error) {
	normalized, err := models.NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", err
	}
	if u.RawQuery != "" {
		params := u.Query()
		for k := range params {
			if _, drop := trackingParams[k]; drop || strings.HasPrefix(k, "utm_") {
				params.Del(k)
			}
		}
		u.RawQuery = params.Encode()
	}
	return u.String(), nil
}

// shingleSet builds the set of overlapping token n-grams used for
// similarity. Texts shorter than one shingle yield an empty set and never
// match on content.
func shingleSet(text string) map[string]struct{} {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) < shingleSize {
		return nil
	}
	out := make(map[string]struct{}, len(tokens)-shingleSize+1)
	for i := 0; i+shingleSize <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+shingleSize], " ")] = struct{}{}
	}
	return out
}

// jaccard is intersection size over union size.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for s := range small {
		if _, ok := large[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
