package review

import (
	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/model"
)

// dismissedSet indexes dismissed pairs for constant-time lookup.
type dismissedSet map[string]struct{}

func newDismissedSet(pairs []model.DismissedPair) dismissedSet {
	set := make(dismissedSet, len(pairs))
	for _, p := range pairs {
		set[model.NewDismissedPair(p.PlaceA, p.PlaceB).Key()] = struct{}{}
	}
	return set
}

func (s dismissedSet) has(a, b string) bool {
	_, ok := s[model.NewDismissedPair(a, b).Key()]
	return ok
}

// FilterDismissedClusters drops every cluster that contains both places of
// any dismissed pair. The input slice is not modified.
func FilterDismissedClusters(clusters []dedupe.DuplicateCluster, dismissed []model.DismissedPair) []dedupe.DuplicateCluster {
	out := make([]dedupe.DuplicateCluster, 0, len(clusters))
	if len(dismissed) == 0 {
		return append(out, clusters...)
	}

	set := newDismissedSet(dismissed)
	for _, c := range clusters {
		if !containsDismissed(c, set) {
			out = append(out, c)
		}
	}
	return out
}

func containsDismissed(c dedupe.DuplicateCluster, set dismissedSet) bool {
	for i := range c.Places {
		for j := i + 1; j < len(c.Places); j++ {
			if set.has(c.Places[i].ID, c.Places[j].ID) {
				return true
			}
		}
	}
	return false
}
