package dedupe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-dedup/internal/model"
)

var sagradaCoords = model.Coords{Lat: 41.4036, Lon: 2.1744}

func landmark(id, name string, coords *model.Coords) model.Place {
	return model.Place{
		ID:      id,
		Name:    name,
		Kind:    "landmark",
		City:    "Barcelona",
		Country: "Spain",
		Coords:  coords,
		Status:  model.PlaceStatusActive,
	}
}

func TestScore_Identity(t *testing.T) {
	p := landmark("p1", "Sagrada Familia", &sagradaCoords)

	m := Score(p, p, DefaultDetectionConfig())

	assert.Equal(t, 1.0, m.Confidence)
	assert.Equal(t, 1.0, m.Factors.NameScore)
	assert.Equal(t, 1.0, m.Factors.LocationScore)
	assert.True(t, m.Factors.KindMatch)
	assert.True(t, m.Factors.CityMatch)
	assert.True(t, m.Factors.CountryMatch)
	require.NotNil(t, m.Factors.DistanceKM)
	assert.Equal(t, 0.0, *m.Factors.DistanceKM)
}

func TestScore_ContainedNameNearby(t *testing.T) {
	a := landmark("a", "Sagrada Familia", &sagradaCoords)
	b := landmark("b", "Basílica de la Sagrada Família", northOf(sagradaCoords, 0.03))

	m := Score(a, b, DefaultDetectionConfig())

	assert.GreaterOrEqual(t, m.Confidence, 0.85)
	assert.Greater(t, m.Confidence, HighConfidence)
	assert.Equal(t, []string{
		"Names are very similar",
		"Same location",
		"Same type: landmark",
		"Both in Barcelona",
		"Both in Spain",
	}, m.Reasoning)
}

func TestScore_SameNameFarApart(t *testing.T) {
	a := landmark("a", "Starbucks", &sagradaCoords)
	b := landmark("b", "Starbucks", northOf(sagradaCoords, 10))

	m := Score(a, b, DefaultDetectionConfig())

	assert.Equal(t, 0.0, m.Factors.LocationScore)
	assert.Equal(t, 1.0, m.Factors.NameScore)
	assert.InDelta(t, 0.7, m.Confidence, 1e-9)
	require.NotNil(t, m.Factors.DistanceKM)
	assert.InDelta(t, 10, *m.Factors.DistanceKM, 1e-6)
	assert.NotContains(t, m.Reasoning, "Same location")
}

func TestScore_Nearby(t *testing.T) {
	a := landmark("a", "Louvre", &sagradaCoords)
	b := landmark("b", "Louvre", northOf(sagradaCoords, 0.3))

	m := Score(a, b, DefaultDetectionConfig())

	assert.InDelta(t, 0.4, m.Factors.LocationScore, 1e-6)
	assert.Contains(t, m.Reasoning, "Nearby (300m apart)")
}

func TestScore_MissingCoords(t *testing.T) {
	a := landmark("a", "Louvre", nil)
	b := landmark("b", "Louvre", &sagradaCoords)

	m := Score(a, b, DefaultDetectionConfig())

	assert.Equal(t, 0.0, m.Factors.LocationScore)
	assert.Nil(t, m.Factors.DistanceKM)
	assert.InDelta(t, 0.7, m.Confidence, 1e-9)
}

func TestScore_CategoricalOnly(t *testing.T) {
	a := model.Place{ID: "a", Name: "Alpha", Country: "France"}
	b := model.Place{ID: "b", Name: "Zulu", Country: "france"}

	m := Score(a, b, DefaultDetectionConfig())

	assert.True(t, m.Factors.CountryMatch)
	assert.False(t, m.Factors.KindMatch, "blank kinds never match")
	assert.Greater(t, m.Confidence, 0.0)
	assert.Contains(t, m.Reasoning, "Both in France")
}

func TestScore_ZeroWeights(t *testing.T) {
	p := landmark("p", "Louvre", &sagradaCoords)
	cfg := DefaultDetectionConfig()
	cfg.Weights = Weights{}

	assert.Equal(t, 0.0, Score(p, p, cfg).Confidence)
}

func TestScore_Bounded(t *testing.T) {
	cfg := DefaultDetectionConfig()
	cfg.Weights = Weights{Name: 1, Location: 0.7, Kind: 0.2, City: 0.2, Country: 0.2}
	a := landmark("a", "Louvre", &sagradaCoords)
	b := landmark("b", "Musée du Louvre", northOf(sagradaCoords, 0.3))

	for _, p := range []model.Place{a, b} {
		c := Score(a, p, cfg).Confidence
		assert.LessOrEqual(t, c, 1.0)
		assert.GreaterOrEqual(t, c, 0.0)
	}
}

func TestScore_OversizedWeightsClamped(t *testing.T) {
	a := landmark("a", "Louvre", &sagradaCoords)
	b := landmark("b", "Musée du Louvre", northOf(sagradaCoords, 0.3))

	huge := DefaultDetectionConfig()
	huge.Weights = Weights{
		Name:     math.MaxFloat64,
		Location: math.MaxFloat64,
		Kind:     math.MaxFloat64,
		City:     math.MaxFloat64,
		Country:  math.MaxFloat64,
	}
	equal := DefaultDetectionConfig()
	equal.Weights = Weights{Name: 1, Location: 1, Kind: 1, City: 1, Country: 1}

	got := Score(a, b, huge).Confidence
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, Score(a, b, equal).Confidence, got, 1e-12)

	res := DetectDuplicates(a, []model.Place{b, a}, huge)
	require.Len(t, res.PotentialDuplicates, 2)
	assert.Equal(t, "a", res.PotentialDuplicates[0].Place.ID)
	assert.Equal(t, 1.0, res.PotentialDuplicates[0].Confidence)
	assert.True(t, res.HasHighConfidenceDuplicates)
}

func TestScore_Symmetric(t *testing.T) {
	a := landmark("a", "Sagrada Familia", &sagradaCoords)
	b := landmark("b", "Basílica de la Sagrada Família", northOf(sagradaCoords, 0.2))
	b.City = "barcelona "

	ab := Score(a, b, DefaultDetectionConfig())
	ba := Score(b, a, DefaultDetectionConfig())

	assert.Equal(t, ab.Confidence, ba.Confidence)
	assert.Equal(t, ab.Factors, ba.Factors)
}

func TestCategoricalMatchers(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"equal", "museum", "museum", true},
		{"case", "Museum", "MUSEUM", true},
		{"padded", " museum ", "museum", true},
		{"different", "museum", "park", false},
		{"both blank", "", "", false},
		{"one blank", "museum", " ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := model.Place{Kind: tt.a, City: tt.a, Country: tt.a}
			b := model.Place{Kind: tt.b, City: tt.b, Country: tt.b}
			assert.Equal(t, tt.want, KindMatch(a, b))
			assert.Equal(t, tt.want, CityMatch(a, b))
			assert.Equal(t, tt.want, CountryMatch(a, b))
		})
	}
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "42m", formatDistance(0.042))
	assert.Equal(t, "999m", formatDistance(0.999))
	assert.Equal(t, "1.0km", formatDistance(1))
	assert.Equal(t, "12.3km", formatDistance(12.34))
}
