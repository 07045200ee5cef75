package dedupe

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/place-dedup/internal/model"
)

// clusterNamespace seeds the name-based UUIDs used as cluster IDs.
var clusterNamespace = uuid.MustParse("6f1c2a4e-8d3b-5e7f-9a10-2b4c6d8e0f12")

// DuplicateCluster is a group of places linked, directly or through other
// members, by pairwise matches at or above a confidence threshold.
type DuplicateCluster struct {
	ClusterID     string        `json:"cluster_id"`
	Places        []model.Place `json:"places"`
	AvgConfidence float64       `json:"avg_confidence"`
	PairCount     int           `json:"pair_count"`
}

// IDs returns the member place IDs in cluster order.
func (c DuplicateCluster) IDs() []string {
	ids := make([]string, len(c.Places))
	for i, p := range c.Places {
		ids[i] = p.ID
	}
	return ids
}

// ClusterID derives a stable cluster ID from member place IDs. Member order
// does not matter.
func ClusterID(placeIDs []string) string {
	sorted := make([]string, len(placeIDs))
	copy(sorted, placeIDs)
	sort.Strings(sorted)
	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(sorted, "\x00"))).String()
}

type edge struct {
	lo, hi     int
	confidence float64
}

// FindDuplicateClusters groups places into connected components over the
// graph whose edges are pairwise matches with confidence >= minConfidence.
// An edge is taken from either direction; if both directions report the
// pair, the higher confidence is used. Components with fewer than
// minClusterSize members are dropped. AvgConfidence averages only the
// qualifying edges inside a component.
//
// Clusters are ordered by their earliest member in results' input order, and
// members keep that order too.
func FindDuplicateClusters(results *BatchResults, minClusterSize int, minConfidence float64) []DuplicateCluster {
	if minClusterSize < 2 {
		minClusterSize = 2
	}
	minConfidence = clampOr(minConfidence, 0, 1, DefaultDetectionConfig().MinConfidenceScore)

	clusters := []DuplicateCluster{}
	ids := results.IDs()
	if len(ids) < minClusterSize {
		return clusters
	}

	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		pos[id] = i
	}

	best := make(map[[2]int]float64)
	for i, id := range ids {
		r, _ := results.Get(id)
		for _, d := range r.PotentialDuplicates {
			if d.Confidence < minConfidence {
				continue
			}
			j, ok := pos[d.Place.ID]
			if !ok || j == i {
				continue
			}
			key := [2]int{min(i, j), max(i, j)}
			if c, seen := best[key]; !seen || d.Confidence > c {
				best[key] = d.Confidence
			}
		}
	}

	edges := make([]edge, 0, len(best))
	for k, c := range best {
		edges = append(edges, edge{lo: k[0], hi: k[1], confidence: c})
	}
	// Fixed summation order keeps AvgConfidence bitwise stable across runs.
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].lo != edges[b].lo {
			return edges[a].lo < edges[b].lo
		}
		return edges[a].hi < edges[b].hi
	})

	uf := newUnionFind(len(ids))
	for _, e := range edges {
		uf.union(e.lo, e.hi)
	}

	members := make(map[int][]int)
	var roots []int
	for i := range ids {
		root := uf.find(i)
		if _, ok := members[root]; !ok {
			roots = append(roots, root)
		}
		members[root] = append(members[root], i)
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, e := range edges {
		root := uf.find(e.lo)
		sums[root] += e.confidence
		counts[root]++
	}

	for _, root := range roots {
		idx := members[root]
		if len(idx) < minClusterSize {
			continue
		}
		places := make([]model.Place, len(idx))
		memberIDs := make([]string, len(idx))
		for k, i := range idx {
			r, _ := results.Get(ids[i])
			places[k] = r.OriginalPlace
			memberIDs[k] = ids[i]
		}
		var avg float64
		if counts[root] > 0 {
			avg = sums[root] / float64(counts[root])
		}
		clusters = append(clusters, DuplicateCluster{
			ClusterID:     ClusterID(memberIDs),
			Places:        places,
			AvgConfidence: avg,
			PairCount:     counts[root],
		})
	}

	zap.L().Debug("dedupe: clusters built",
		zap.Int("places", len(ids)),
		zap.Int("edges", len(edges)),
		zap.Int("clusters", len(clusters)),
		zap.Int("min_cluster_size", minClusterSize),
		zap.Float64("min_confidence", minConfidence),
	)

	return clusters
}

// unionFind is a disjoint-set forest with path compression and union by size.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), size: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
		uf.size[i] = 1
	}
	return uf
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	u.size[ra] += u.size[rb]
}
