package dedupe

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxLocationThresholdKM is the largest distance threshold the scorer accepts.
const MaxLocationThresholdKM = 50.0

// HighConfidence is the fixed bar above which a match counts as high confidence,
// independent of DetectionConfig.MinConfidenceScore.
const HighConfidence = 0.8

// Weights holds the relative weight of each match signal. They need not sum
// to 1; the scorer normalizes by their sum.
type Weights struct {
	Name     float64 `json:"name" yaml:"name" mapstructure:"name"`
	Location float64 `json:"location" yaml:"location" mapstructure:"location"`
	Kind     float64 `json:"kind" yaml:"kind" mapstructure:"kind"`
	City     float64 `json:"city" yaml:"city" mapstructure:"city"`
	Country  float64 `json:"country" yaml:"country" mapstructure:"country"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.Name + w.Location + w.Kind + w.City + w.Country
}

// DetectionConfig tunes duplicate detection.
type DetectionConfig struct {
	NameThreshold       float64 `json:"name_threshold" yaml:"name_threshold" mapstructure:"name_threshold"`
	LocationThresholdKM float64 `json:"location_threshold_km" yaml:"location_threshold_km" mapstructure:"location_threshold_km"`
	MinConfidenceScore  float64 `json:"min_confidence_score" yaml:"min_confidence_score" mapstructure:"min_confidence_score"`
	Weights             Weights `json:"weights" yaml:"weights" mapstructure:"weights"`
}

// DefaultDetectionConfig returns the default detection configuration.
// Weights sum to 1.
func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		NameThreshold:       0.8,
		LocationThresholdKM: 0.5,
		MinConfidenceScore:  0.6,
		Weights: Weights{
			Name:     0.4,
			Location: 0.3,
			Kind:     0.1,
			City:     0.1,
			Country:  0.1,
		},
	}
}

// Sanitize returns a copy of c with every field clamped into its valid range.
// NaN thresholds fall back to the defaults. Weights are clamped into [0,1],
// NaN weights become 0.
func (c DetectionConfig) Sanitize() DetectionConfig {
	def := DefaultDetectionConfig()
	out := c

	out.NameThreshold = clampOr(c.NameThreshold, 0, 1, def.NameThreshold)
	out.LocationThresholdKM = clampOr(c.LocationThresholdKM, 0, MaxLocationThresholdKM, def.LocationThresholdKM)
	out.MinConfidenceScore = clampOr(c.MinConfidenceScore, 0, 1, def.MinConfidenceScore)

	out.Weights.Name = clampOr(c.Weights.Name, 0, 1, 0)
	out.Weights.Location = clampOr(c.Weights.Location, 0, 1, 0)
	out.Weights.Kind = clampOr(c.Weights.Kind, 0, 1, 0)
	out.Weights.City = clampOr(c.Weights.City, 0, 1, 0)
	out.Weights.Country = clampOr(c.Weights.Country, 0, 1, 0)

	return out
}

// Validate reports every out-of-range field. The engine itself never calls
// Validate; it clamps via Sanitize. Callers use it to reject bad input early.
func (c DetectionConfig) Validate() error {
	var errs []string

	if !inRange(c.NameThreshold, 0, 1) {
		errs = append(errs, fmt.Sprintf("name_threshold must be between 0 and 1 (got %v)", c.NameThreshold))
	}
	if !inRange(c.LocationThresholdKM, 0, MaxLocationThresholdKM) {
		errs = append(errs, fmt.Sprintf("location_threshold_km must be between 0 and %.0f (got %v)", MaxLocationThresholdKM, c.LocationThresholdKM))
	}
	if !inRange(c.MinConfidenceScore, 0, 1) {
		errs = append(errs, fmt.Sprintf("min_confidence_score must be between 0 and 1 (got %v)", c.MinConfidenceScore))
	}

	weights := []struct {
		name string
		val  float64
	}{
		{"weights.name", c.Weights.Name},
		{"weights.location", c.Weights.Location},
		{"weights.kind", c.Weights.Kind},
		{"weights.city", c.Weights.City},
		{"weights.country", c.Weights.Country},
	}
	for _, w := range weights {
		if !inRange(w.val, 0, 1) {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and 1 (got %v)", w.name, w.val))
		}
	}
	if c.Weights.Sum() <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("dedupe: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && v >= lo && v <= hi
}

func clampOr(v, lo, hi, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return clamp(v, lo, hi)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
