package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/model"
)

// PlaceFilter specifies criteria for listing places.
type PlaceFilter struct {
	// Statuses restricts results to the given statuses. Empty means any status.
	Statuses []model.PlaceStatus `json:"statuses,omitempty"`
	// Limit caps the number of places returned. Zero or negative means no cap.
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the persistence interface for places and review decisions.
type Store interface {
	// Places
	UpsertPlaces(ctx context.Context, places []model.Place) (int64, error)
	GetPlace(ctx context.Context, id string) (*model.Place, error)
	ListPlaces(ctx context.Context, filter PlaceFilter) ([]model.Place, error)

	// Dismissed pairs
	DismissPair(ctx context.Context, placeA, placeB string) error
	UndismissPair(ctx context.Context, placeA, placeB string) error
	ListDismissedPairs(ctx context.Context) ([]model.DismissedPair, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// preparePlaces validates places for writing and fills defaults. When the
// same ID appears more than once the last record wins, in the position of
// the first.
func preparePlaces(places []model.Place, now time.Time) ([]model.Place, error) {
	out := make([]model.Place, 0, len(places))
	index := make(map[string]int, len(places))

	for i, p := range places {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, eris.Errorf("store: place %d has no id", i)
		}
		if strings.TrimSpace(p.Name) == "" {
			return nil, eris.Errorf("store: place %s has no name", p.ID)
		}
		if p.Status == "" {
			p.Status = model.PlaceStatusActive
		}
		if !p.Status.Valid() {
			return nil, eris.Errorf("store: place %s has invalid status %q", p.ID, p.Status)
		}
		if p.Source == "" {
			p.Source = model.PlaceSourceManual
		}
		if !p.Coords.Valid() {
			p.Coords = nil
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		if j, ok := index[p.ID]; ok {
			out[j] = p
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out, nil
}

func validatePair(placeA, placeB string) (model.DismissedPair, error) {
	a, b := strings.TrimSpace(placeA), strings.TrimSpace(placeB)
	if a == "" || b == "" {
		return model.DismissedPair{}, eris.New("store: dismissed pair needs two place ids")
	}
	if a == b {
		return model.DismissedPair{}, eris.Errorf("store: cannot dismiss place %s against itself", a)
	}
	return model.NewDismissedPair(a, b), nil
}

func statusStrings(statuses []model.PlaceStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// coordArgs returns nullable lat/lon column values.
func coordArgs(c *model.Coords) (lat, lon *float64) {
	if c == nil {
		return nil, nil
	}
	la, lo := c.Lat, c.Lon
	return &la, &lo
}

func coordsFrom(lat, lon *float64) *model.Coords {
	if lat == nil || lon == nil {
		return nil
	}
	c := &model.Coords{Lat: *lat, Lon: *lon}
	if !c.Valid() {
		return nil
	}
	return c
}
