package dedup

// unionFind is a disjoint-set forest over string keys with path
// compression. It closes pairwise duplicate judgments transitively: if A
// matches B and B matches C, all three land in one set.
type unionFind struct {
	parent map[string]string
}

func newUnionFind() *unionFind {
	return &unionFind{parent: make(map[string]string)}
}

func (u *unionFind) find(x string) string {
	root, ok := u.parent[x]
	if !ok {
		u.parent[x] = x
		return x
	}
	if root == x {
		return x
	}
	// Path compression: point every node on the walk at the root.
	top := u.find(root)
	u.parent[x] = top
	return top
}

func (u *unionFind) union(a, b string) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u.parent[ra] = rb
	}
}

// sets groups the given keys by their root. Keys never unioned form
// singleton sets.
func (u *unionFind) sets(keys []string) map[string][]string {
	out := make(map[string][]string)
	for _, k := range keys {
		root := u.find(k)
		out[root] = append(out[root], k)
	}
	return out
}
