package dedupe

import (
	"fmt"

	"github.com/sells-group/place-dedup/internal/model"
)

// somewhatSimilarName is the name score at which the reasoning trail still
// mentions the name, below the configured threshold.
const somewhatSimilarName = 0.6

// sameLocation is the location score reported as "Same location".
const sameLocation = 0.8

// MatchFactors is the per-signal breakdown behind a confidence value.
type MatchFactors struct {
	NameScore     float64  `json:"name_score"`
	LocationScore float64  `json:"location_score"`
	KindMatch     bool     `json:"kind_match"`
	CityMatch     bool     `json:"city_match"`
	CountryMatch  bool     `json:"country_match"`
	DistanceKM    *float64 `json:"distance_km,omitempty"`
}

// Match is the outcome of scoring one candidate against a target.
type Match struct {
	Confidence float64      `json:"confidence"`
	Factors    MatchFactors `json:"factors"`
	Reasoning  []string     `json:"reasoning"`
}

// Score compares candidate to target and returns a weighted confidence with
// its factors and a human-readable reasoning trail. Score never filters:
// a candidate with no name or location support can still earn confidence
// from categorical matches alone.
func Score(target, candidate model.Place, cfg DetectionConfig) Match {
	return scorePair(target, candidate, cfg.Sanitize())
}

// scorePair assumes cfg is already sanitized.
func scorePair(target, candidate model.Place, cfg DetectionConfig) Match {
	f := MatchFactors{
		NameScore:    NameSimilarity(target.Name, candidate.Name),
		KindMatch:    KindMatch(target, candidate),
		CityMatch:    CityMatch(target, candidate),
		CountryMatch: CountryMatch(target, candidate),
	}
	if d, ok := Distance(target.Coords, candidate.Coords); ok {
		f.DistanceKM = &d
		f.LocationScore = distanceScore(d, cfg.LocationThresholdKM)
	}

	return Match{
		Confidence: confidence(f, cfg.Weights),
		Factors:    f,
		Reasoning:  reasoning(f, target, cfg),
	}
}

// confidence is the weighted average of all signals, booleans counting as 1 or 0.
func confidence(f MatchFactors, w Weights) float64 {
	sum := w.Sum()
	if sum <= 0 {
		return 0
	}
	total := w.Name*f.NameScore +
		w.Location*f.LocationScore +
		w.Kind*boolScore(f.KindMatch) +
		w.City*boolScore(f.CityMatch) +
		w.Country*boolScore(f.CountryMatch)
	return clamp(total/sum, 0, 1)
}

func boolScore(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func reasoning(f MatchFactors, target model.Place, cfg DetectionConfig) []string {
	reasons := make([]string, 0, 5)

	switch {
	case f.NameScore >= cfg.NameThreshold:
		reasons = append(reasons, "Names are very similar")
	case f.NameScore >= somewhatSimilarName:
		reasons = append(reasons, "Names are somewhat similar")
	}

	switch {
	case f.LocationScore >= sameLocation:
		reasons = append(reasons, "Same location")
	case f.LocationScore > 0 && f.DistanceKM != nil:
		reasons = append(reasons, fmt.Sprintf("Nearby (%s apart)", formatDistance(*f.DistanceKM)))
	}

	if f.KindMatch {
		reasons = append(reasons, "Same type: "+target.Kind)
	}
	if f.CityMatch {
		reasons = append(reasons, "Both in "+target.City)
	}
	if f.CountryMatch {
		reasons = append(reasons, "Both in "+target.Country)
	}

	return reasons
}

func formatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%.0fm", km*1000)
	}
	return fmt.Sprintf("%.1fkm", km)
}
