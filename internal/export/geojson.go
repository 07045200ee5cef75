package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/place-dedup/internal/dedupe"
)

// ClustersFeatureCollection builds a FeatureCollection with one Point
// feature per cluster member. Members without valid coordinates are left
// out; their cluster still appears through the other members.
func ClustersFeatureCollection(clusters []dedupe.DuplicateCluster) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	var bounds *geom.Bounds

	for _, c := range clusters {
		for _, p := range c.Places {
			pt := p.Coords.Point()
			if pt == nil {
				continue
			}
			if bounds == nil {
				bounds = geom.NewBounds(geom.XY)
			}
			bounds.Extend(pt)

			fc.Features = append(fc.Features, &geojson.Feature{
				ID:       p.ID,
				Geometry: pt,
				Properties: map[string]any{
					"cluster_id":     c.ClusterID,
					"cluster_size":   len(c.Places),
					"avg_confidence": c.AvgConfidence,
					"pair_count":     c.PairCount,
					"name":           p.Name,
					"kind":           p.Kind,
					"city":           p.City,
					"country":        p.Country,
					"status":         string(p.Status),
					"source":         string(p.Source),
				},
			})
		}
	}

	fc.BBox = bounds
	return fc
}

// WriteClustersGeoJSON writes clusters as an indented GeoJSON FeatureCollection.
func WriteClustersGeoJSON(w io.Writer, clusters []dedupe.DuplicateCluster) error {
	data, err := json.MarshalIndent(ClustersFeatureCollection(clusters), "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
