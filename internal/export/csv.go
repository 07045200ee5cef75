// Package export writes duplicate clusters and detection results as CSV and
// GeoJSON.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/dedupe"
	"github.com/sells-group/place-dedup/internal/model"
)

var clusterHeader = []string{
	"cluster_id", "cluster_size", "avg_confidence", "pair_count",
	"place_id", "name", "kind", "city", "country", "lat", "lon", "status", "source",
}

// WriteClustersCSV writes one row per cluster member.
func WriteClustersCSV(w io.Writer, clusters []dedupe.DuplicateCluster) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(clusterHeader); err != nil {
		return eris.Wrap(err, "export: write cluster header")
	}

	for _, c := range clusters {
		for _, p := range c.Places {
			lat, lon := coordStrings(p.Coords)
			row := []string{
				c.ClusterID,
				strconv.Itoa(len(c.Places)),
				formatFloat(c.AvgConfidence),
				strconv.Itoa(c.PairCount),
				p.ID, p.Name, p.Kind, p.City, p.Country,
				lat, lon,
				string(p.Status), string(p.Source),
			}
			if err := cw.Write(row); err != nil {
				return eris.Wrapf(err, "export: write cluster %s", c.ClusterID)
			}
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush clusters csv")
}

var matchHeader = []string{
	"place_id", "candidate_id", "candidate_name", "confidence",
	"name_score", "location_score", "distance_km",
	"kind_match", "city_match", "country_match", "reasoning",
}

// WriteMatchesCSV writes one row per potential duplicate of a single place.
func WriteMatchesCSV(w io.Writer, result *dedupe.DuplicateDetectionResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(matchHeader); err != nil {
		return eris.Wrap(err, "export: write match header")
	}

	for _, d := range result.PotentialDuplicates {
		dist := ""
		if d.Factors.DistanceKM != nil {
			dist = formatFloat(*d.Factors.DistanceKM)
		}
		row := []string{
			result.OriginalPlace.ID,
			d.Place.ID,
			d.Place.Name,
			formatFloat(d.Confidence),
			formatFloat(d.Factors.NameScore),
			formatFloat(d.Factors.LocationScore),
			dist,
			strconv.FormatBool(d.Factors.KindMatch),
			strconv.FormatBool(d.Factors.CityMatch),
			strconv.FormatBool(d.Factors.CountryMatch),
			strings.Join(d.Reasoning, "; "),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "export: write match %s", d.Place.ID)
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush matches csv")
}

func coordStrings(c *model.Coords) (string, string) {
	if !c.Valid() {
		return "", ""
	}
	return strconv.FormatFloat(c.Lat, 'f', -1, 64), strconv.FormatFloat(c.Lon, 'f', -1, 64)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
