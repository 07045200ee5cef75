package dedupe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-dedup/internal/model"
)

// chainConfig scores on name and location only, so confidence falls with
// distance between identically named places.
func chainConfig() DetectionConfig {
	cfg := DefaultDetectionConfig()
	cfg.Weights = Weights{Name: 0.4, Location: 0.3}
	return cfg
}

// chainPlaces returns three identically named places 300m apart in a line.
// Neighbours score (0.4+0.3*0.4)/0.7 ≈ 0.743; the ends score 0.4/0.7 ≈ 0.571.
func chainPlaces() []model.Place {
	return []model.Place{
		{ID: "a", Name: "Café Central", Coords: &sagradaCoords},
		{ID: "b", Name: "Café Central", Coords: northOf(sagradaCoords, 0.3)},
		{ID: "c", Name: "Café Central", Coords: northOf(sagradaCoords, 0.6)},
	}
}

func TestFindDuplicateClusters_TransitiveChain(t *testing.T) {
	results, err := BatchDetectDuplicates(context.Background(), chainPlaces(), chainConfig())
	require.NoError(t, err)

	ac, _ := results.Get("a")
	require.Equal(t, "c", ac.PotentialDuplicates[1].Place.ID)
	assert.Less(t, ac.PotentialDuplicates[1].Confidence, 0.6)

	clusters := FindDuplicateClusters(results, 2, 0.6)

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, []string{"a", "b", "c"}, c.IDs())
	assert.Equal(t, 2, c.PairCount)
	assert.InDelta(t, 0.52/0.7, c.AvgConfidence, 1e-6)
	assert.Equal(t, ClusterID([]string{"a", "b", "c"}), c.ClusterID)
}

func TestFindDuplicateClusters_MinClusterSize(t *testing.T) {
	results, err := BatchDetectDuplicates(context.Background(), chainPlaces(), chainConfig())
	require.NoError(t, err)

	assert.Len(t, FindDuplicateClusters(results, 3, 0.6), 1)
	assert.Empty(t, FindDuplicateClusters(results, 4, 0.6))
	// Sizes below 2 are treated as 2.
	assert.Len(t, FindDuplicateClusters(results, 0, 0.6), 1)
}

func TestFindDuplicateClusters_ThresholdSplits(t *testing.T) {
	results, err := BatchDetectDuplicates(context.Background(), chainPlaces(), chainConfig())
	require.NoError(t, err)

	assert.Empty(t, FindDuplicateClusters(results, 2, 0.8))

	all := FindDuplicateClusters(results, 2, 0.5)
	require.Len(t, all, 1)
	assert.Equal(t, 3, all[0].PairCount)
}

func TestFindDuplicateClusters_Empty(t *testing.T) {
	clusters := FindDuplicateClusters(NewBatchResults(), 2, 0.6)
	assert.NotNil(t, clusters)
	assert.Empty(t, clusters)

	assert.Empty(t, FindDuplicateClusters(nil, 2, 0.6))
}

func pd(id string, confidence float64) PotentialDuplicate {
	return PotentialDuplicate{Place: model.Place{ID: id}, Confidence: confidence}
}

func result(id string, dups ...PotentialDuplicate) DuplicateDetectionResult {
	return DuplicateDetectionResult{
		OriginalPlace:       model.Place{ID: id},
		PotentialDuplicates: dups,
		TotalCandidates:     len(dups),
	}
}

func TestFindDuplicateClusters_EdgeFromEitherDirection(t *testing.T) {
	results := NewBatchResults()
	results.Add(result("x", pd("y", 0.5)))
	results.Add(result("y", pd("x", 0.9)))

	clusters := FindDuplicateClusters(results, 2, 0.6)

	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"x", "y"}, clusters[0].IDs())
	assert.Equal(t, 1, clusters[0].PairCount)
	assert.Equal(t, 0.9, clusters[0].AvgConfidence)
}

func TestFindDuplicateClusters_UnknownAndSelfEdgesIgnored(t *testing.T) {
	results := NewBatchResults()
	results.Add(result("x", pd("x", 1), pd("ghost", 0.99)))
	results.Add(result("y"))

	assert.Empty(t, FindDuplicateClusters(results, 2, 0.6))
}

func TestFindDuplicateClusters_Ordering(t *testing.T) {
	results := NewBatchResults()
	results.Add(result("p", pd("s", 0.7)))
	results.Add(result("q", pd("r", 0.8)))
	results.Add(result("r", pd("q", 0.8)))
	results.Add(result("s", pd("p", 0.7)))
	results.Add(result("t"))

	clusters := FindDuplicateClusters(results, 2, 0.6)

	require.Len(t, clusters, 2)
	assert.Equal(t, []string{"p", "s"}, clusters[0].IDs())
	assert.Equal(t, []string{"q", "r"}, clusters[1].IDs())
	assert.InDelta(t, 0.7, clusters[0].AvgConfidence, 1e-12)
	assert.InDelta(t, 0.8, clusters[1].AvgConfidence, 1e-12)
}

func TestFindDuplicateClusters_Deterministic(t *testing.T) {
	results, err := BatchDetectDuplicates(context.Background(), batchFixture(), DefaultDetectionConfig())
	require.NoError(t, err)

	first := FindDuplicateClusters(results, 2, 0.6)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FindDuplicateClusters(results, 2, 0.6))
	}
}

func TestFindDuplicateClusters_DisjointAndCovering(t *testing.T) {
	results, err := BatchDetectDuplicates(context.Background(), batchFixture(), DefaultDetectionConfig())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, c := range FindDuplicateClusters(results, 2, 0.6) {
		assert.GreaterOrEqual(t, len(c.Places), 2)
		assert.GreaterOrEqual(t, c.AvgConfidence, 0.6)
		for _, id := range c.IDs() {
			assert.False(t, seen[id], "place %s in two clusters", id)
			seen[id] = true
		}
	}
	assert.True(t, seen["sf-1"] && seen["sf-2"])
	assert.True(t, seen["pg-1"] && seen["pg-2"])
}

func TestClusterID_OrderIndependent(t *testing.T) {
	assert.Equal(t, ClusterID([]string{"a", "b", "c"}), ClusterID([]string{"c", "a", "b"}))
	assert.NotEqual(t, ClusterID([]string{"a", "b"}), ClusterID([]string{"a", "b", "c"}))
	assert.Len(t, ClusterID([]string{"a"}), 36)
}
