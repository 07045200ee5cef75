package dedupe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-dedup/internal/model"
)

func batchFixture() []model.Place {
	return []model.Place{
		landmark("sf-1", "Sagrada Familia", &sagradaCoords),
		landmark("sf-2", "Basílica de la Sagrada Família", northOf(sagradaCoords, 0.03)),
		landmark("pg-1", "Park Güell", northOf(sagradaCoords, 2.5)),
		landmark("cb-1", "Casa Batlló", northOf(sagradaCoords, 1.2)),
		landmark("pg-2", "Park Guell", northOf(sagradaCoords, 2.52)),
	}
}

func TestBatchDetectDuplicates(t *testing.T) {
	places := batchFixture()

	results, err := BatchDetectDuplicates(context.Background(), places, DefaultDetectionConfig())
	require.NoError(t, err)

	require.Equal(t, len(places), results.Len())
	assert.Equal(t, []string{"sf-1", "sf-2", "pg-1", "cb-1", "pg-2"}, results.IDs())

	for _, p := range places {
		r, ok := results.Get(p.ID)
		require.True(t, ok, p.ID)
		assert.Equal(t, p, r.OriginalPlace)
		assert.Equal(t, len(places)-1, r.TotalCandidates)
		for _, d := range r.PotentialDuplicates {
			assert.NotEqual(t, p.ID, d.Place.ID, "a place is never its own candidate")
		}
	}

	r, _ := results.Get("sf-1")
	assert.Equal(t, "sf-2", r.PotentialDuplicates[0].Place.ID)
	assert.True(t, r.HasHighConfidenceDuplicates)
}

func TestBatchDetectDuplicates_MatchesPairwise(t *testing.T) {
	places := batchFixture()
	cfg := DefaultDetectionConfig()

	results, err := BatchDetectDuplicates(context.Background(), places, cfg)
	require.NoError(t, err)

	for i, p := range places {
		others := append(append([]model.Place{}, places[:i]...), places[i+1:]...)
		want := DetectDuplicates(p, others, cfg)
		got, _ := results.Get(p.ID)
		assert.Equal(t, want, *got)
	}
}

func TestBatchDetectDuplicates_WorkerCountInvariant(t *testing.T) {
	places := batchFixture()
	for i := 0; i < 20; i++ {
		places = append(places, landmark(fmt.Sprintf("x-%02d", i), fmt.Sprintf("Shop %d", i), northOf(sagradaCoords, float64(i)*0.1)))
	}

	one, err := BatchDetectDuplicates(context.Background(), places, DefaultDetectionConfig(), WithWorkers(1))
	require.NoError(t, err)
	many, err := BatchDetectDuplicates(context.Background(), places, DefaultDetectionConfig(), WithWorkers(8))
	require.NoError(t, err)

	a, err := json.Marshal(one)
	require.NoError(t, err)
	b, err := json.Marshal(many)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestBatchDetectDuplicates_Empty(t *testing.T) {
	results, err := BatchDetectDuplicates(context.Background(), nil, DefaultDetectionConfig())
	require.NoError(t, err)
	assert.Equal(t, 0, results.Len())

	data, err := json.Marshal(results)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestBatchDetectDuplicates_DuplicateIDsKeepFirst(t *testing.T) {
	places := []model.Place{
		landmark("dup", "First", &sagradaCoords),
		landmark("other", "Other", &sagradaCoords),
		landmark("dup", "Second", &sagradaCoords),
	}

	results, err := BatchDetectDuplicates(context.Background(), places, DefaultDetectionConfig())
	require.NoError(t, err)

	assert.Equal(t, []string{"dup", "other"}, results.IDs())
	r, _ := results.Get("dup")
	assert.Equal(t, "First", r.OriginalPlace.Name)
}

func TestBatchDetectDuplicates_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BatchDetectDuplicates(ctx, batchFixture(), DefaultDetectionConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchResults_OrderedJSON(t *testing.T) {
	results := NewBatchResults()
	for _, id := range []string{"zeta", "alpha", "mike"} {
		assert.True(t, results.Add(DuplicateDetectionResult{OriginalPlace: model.Place{ID: id}}))
	}
	assert.False(t, results.Add(DuplicateDetectionResult{OriginalPlace: model.Place{ID: "alpha"}}))

	data, err := json.Marshal(results)
	require.NoError(t, err)
	s := string(data)

	z, a, m := strings.Index(s, `"zeta"`), strings.Index(s, `"alpha"`), strings.Index(s, `"mike"`)
	assert.True(t, z < a && a < m, "keys out of order: %s", s)

	var decoded map[string]DuplicateDetectionResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, 3)
}

func TestBatchResults_NilSafe(t *testing.T) {
	var results *BatchResults

	assert.Equal(t, 0, results.Len())
	assert.Nil(t, results.IDs())
	_, ok := results.Get("x")
	assert.False(t, ok)
	results.Each(func(string, *DuplicateDetectionResult) { t.Fatal("unexpected call") })
}

func TestBatchResults_Each(t *testing.T) {
	results := NewBatchResults()
	results.Add(DuplicateDetectionResult{OriginalPlace: model.Place{ID: "b"}})
	results.Add(DuplicateDetectionResult{OriginalPlace: model.Place{ID: "a"}})

	var seen []string
	results.Each(func(id string, r *DuplicateDetectionResult) {
		assert.Equal(t, id, r.OriginalPlace.ID)
		seen = append(seen, id)
	})
	assert.Equal(t, []string{"b", "a"}, seen)
}
