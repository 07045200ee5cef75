package review

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/model"
)

func cluster(ids ...string) dedupe.DuplicateCluster {
	places := make([]model.Place, len(ids))
	for i, id := range ids {
		places[i] = model.Place{ID: id}
	}
	return dedupe.DuplicateCluster{ClusterID: dedupe.ClusterID(ids), Places: places}
}

func TestFilterDismissedClusters(t *testing.T) {
	clusters := []dedupe.DuplicateCluster{
		cluster("a", "b", "c"),
		cluster("d", "e"),
		cluster("f", "g"),
	}

	tests := []struct {
		name      string
		dismissed []model.DismissedPair
		want      [][]string
	}{
		{"none dismissed", nil, [][]string{{"a", "b", "c"}, {"d", "e"}, {"f", "g"}}},
		{"pair inside cluster", []model.DismissedPair{model.NewDismissedPair("c", "a")}, [][]string{{"d", "e"}, {"f", "g"}}},
		{"pair across clusters", []model.DismissedPair{model.NewDismissedPair("a", "d")}, [][]string{{"a", "b", "c"}, {"d", "e"}, {"f", "g"}}},
		{"reversed stored pair", []model.DismissedPair{{PlaceA: "g", PlaceB: "f"}}, [][]string{{"a", "b", "c"}, {"d", "e"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterDismissedClusters(clusters, tt.dismissed)
			ids := make([][]string, len(got))
			for i, c := range got {
				ids[i] = c.IDs()
			}
			assert.Equal(t, tt.want, ids)
		})
	}
	assert.Len(t, clusters, 3, "input is not modified")
}

func TestFilterDismissedClusters_Empty(t *testing.T) {
	got := FilterDismissedClusters(nil, []model.DismissedPair{model.NewDismissedPair("a", "b")})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
