package model

import (
	"math"
	"time"

	"github.com/twpayne/go-geom"
)

// PlaceStatus represents the lifecycle state of a place record.
type PlaceStatus string

const (
	PlaceStatusActive   PlaceStatus = "active"
	PlaceStatusArchived PlaceStatus = "archived"
	PlaceStatusMerged   PlaceStatus = "merged"
)

// Valid reports whether s is a known status.
func (s PlaceStatus) Valid() bool {
	switch s {
	case PlaceStatusActive, PlaceStatusArchived, PlaceStatusMerged:
		return true
	default:
		return false
	}
}

// PlaceSource describes where a place record came from.
type PlaceSource string

const (
	PlaceSourceManual PlaceSource = "manual"
	PlaceSourceOCR    PlaceSource = "ocr_llm"
	PlaceSourceImport PlaceSource = "import"
)

// Coords is a WGS84 latitude/longitude pair.
type Coords struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Valid reports whether the coordinates are finite and inside the WGS84 range.
// Extraction output occasionally carries NaN or swapped values; those are
// treated as absent rather than compared.
func (c *Coords) Valid() bool {
	if c == nil {
		return false
	}
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Point returns the coordinates as a go-geom point (X=lon, Y=lat, SRID 4326).
// Returns nil when the coordinates are not valid.
func (c *Coords) Point() *geom.Point {
	if !c.Valid() {
		return nil
	}
	return geom.NewPointFlat(geom.XY, []float64{c.Lon, c.Lat}).SetSRID(4326)
}

// Place is a single place record contributed by manual entry, OCR+LLM
// extraction, or a bulk import.
type Place struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Kind      string      `json:"kind" yaml:"kind"`
	City      string      `json:"city,omitempty" yaml:"city,omitempty"`
	Country   string      `json:"country,omitempty" yaml:"country,omitempty"`
	Coords    *Coords     `json:"coords,omitempty" yaml:"coords,omitempty"`
	Status    PlaceStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Source    PlaceSource `json:"source,omitempty" yaml:"source,omitempty"`
	CreatedAt time.Time   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt time.Time   `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// DismissedPair records two places a reviewer marked as "not a duplicate".
// PlaceA always sorts before PlaceB; use NewDismissedPair to build one.
type DismissedPair struct {
	PlaceA      string    `json:"place_a"`
	PlaceB      string    `json:"place_b"`
	DismissedAt time.Time `json:"dismissed_at"`
}

// NewDismissedPair returns a pair with its IDs in canonical order.
func NewDismissedPair(a, b string) DismissedPair {
	if b < a {
		a, b = b, a
	}
	return DismissedPair{PlaceA: a, PlaceB: b}
}

// Key returns a stable map key for the pair.
func (p DismissedPair) Key() string {
	return p.PlaceA + "|" + p.PlaceB
}
