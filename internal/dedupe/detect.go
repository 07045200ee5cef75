package dedupe

import (
	"sort"

	"github.com/sells-group/place-dedup/internal/model"
)

// PotentialDuplicate is one scored candidate for a target place.
type PotentialDuplicate struct {
	Place      model.Place  `json:"place"`
	Confidence float64      `json:"confidence"`
	Factors    MatchFactors `json:"factors"`
	Reasoning  []string     `json:"reasoning"`
}

// DuplicateDetectionResult holds every scored candidate for one target place,
// most confident first.
type DuplicateDetectionResult struct {
	OriginalPlace               model.Place          `json:"original_place"`
	PotentialDuplicates         []PotentialDuplicate `json:"potential_duplicates"`
	HasHighConfidenceDuplicates bool                 `json:"has_high_confidence_duplicates"`
	TotalCandidates             int                  `json:"total_candidates"`
}

// Above returns the potential duplicates whose confidence is at least threshold.
// The returned slice keeps the descending order.
func (r *DuplicateDetectionResult) Above(threshold float64) []PotentialDuplicate {
	out := make([]PotentialDuplicate, 0, len(r.PotentialDuplicates))
	for _, d := range r.PotentialDuplicates {
		if d.Confidence >= threshold {
			out = append(out, d)
		}
	}
	return out
}

// DetectDuplicates scores target against every candidate. Every candidate is
// represented in the result regardless of confidence so callers can apply
// their own threshold. Ties keep the candidates' input order.
//
// Candidates must not include target itself; if they do, it is scored like
// any other candidate.
func DetectDuplicates(target model.Place, candidates []model.Place, cfg DetectionConfig) DuplicateDetectionResult {
	return detect(target, candidates, cfg.Sanitize())
}

// detect assumes cfg is already sanitized.
func detect(target model.Place, candidates []model.Place, cfg DetectionConfig) DuplicateDetectionResult {
	dups := make([]PotentialDuplicate, 0, len(candidates))
	for _, c := range candidates {
		m := scorePair(target, c, cfg)
		dups = append(dups, PotentialDuplicate{
			Place:      c,
			Confidence: m.Confidence,
			Factors:    m.Factors,
			Reasoning:  m.Reasoning,
		})
	}

	sort.SliceStable(dups, func(i, j int) bool {
		return dups[i].Confidence > dups[j].Confidence
	})

	return DuplicateDetectionResult{
		OriginalPlace:               target,
		PotentialDuplicates:         dups,
		HasHighConfidenceDuplicates: len(dups) > 0 && dups[0].Confidence > HighConfidence,
		TotalCandidates:             len(candidates),
	}
}
