package importer

import (
	"strings"

	"github.com/sells-group/place-dedup/internal/model"
)

// placeRecord is the document shape shared by JSON and YAML imports.
// Coordinates may be nested under "coords" or given as flat lat/lon fields.
type placeRecord struct {
	ID      string        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Kind    string        `json:"kind" yaml:"kind"`
	Type    string        `json:"type" yaml:"type"`
	City    string        `json:"city" yaml:"city"`
	Country string        `json:"country" yaml:"country"`
	Coords  *model.Coords `json:"coords" yaml:"coords"`
	Lat     *float64      `json:"lat" yaml:"lat"`
	Lon     *float64      `json:"lon" yaml:"lon"`
	Lng     *float64      `json:"lng" yaml:"lng"`
	Status  string        `json:"status" yaml:"status"`
	Source  string        `json:"source" yaml:"source"`
}

func (r placeRecord) place() model.Place {
	p := model.Place{
		ID:      r.ID,
		Name:    r.Name,
		Kind:    r.Kind,
		City:    r.City,
		Country: r.Country,
		Coords:  r.Coords,
		Status:  model.PlaceStatus(strings.ToLower(strings.TrimSpace(r.Status))),
		Source:  model.PlaceSource(strings.ToLower(strings.TrimSpace(r.Source))),
	}
	if p.Kind == "" {
		p.Kind = r.Type
	}
	lon := r.Lon
	if lon == nil {
		lon = r.Lng
	}
	if p.Coords == nil && r.Lat != nil && lon != nil {
		p.Coords = &model.Coords{Lat: *r.Lat, Lon: *lon}
	}
	return p
}

func recordsToPlaces(records []placeRecord) []model.Place {
	places := make([]model.Place, len(records))
	for i, r := range records {
		places[i] = r.place()
	}
	return places
}
