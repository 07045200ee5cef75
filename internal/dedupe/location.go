package dedupe

import (
	"math"

	"github.com/sells-group/place-dedup/internal/model"
)

// earthRadiusKM is the mean Earth radius used for great-circle distance.
const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push h a hair past 1 for antipodal points.
	h = clamp(h, 0, 1)
	return 2 * earthRadiusKM * math.Asin(math.Sqrt(h))
}

// Distance returns the distance in km between two coordinates, and false
// when either side is missing or invalid.
func Distance(a, b *model.Coords) (float64, bool) {
	if !a.Valid() || !b.Valid() {
		return 0, false
	}
	// Operand order is fixed so Distance(a, b) and Distance(b, a) are bitwise equal.
	if a.Lat > b.Lat || (a.Lat == b.Lat && a.Lon > b.Lon) {
		a, b = b, a
	}
	return HaversineKM(a.Lat, a.Lon, b.Lat, b.Lon), true
}

// LocationSimilarity maps the distance between two coordinates onto 0-1:
// 1 at distance 0, falling linearly to 0 at thresholdKM. Missing coordinates
// score 0. A zero threshold only rewards identical points.
func LocationSimilarity(a, b *model.Coords, thresholdKM float64) float64 {
	d, ok := Distance(a, b)
	if !ok {
		return 0
	}
	return distanceScore(d, thresholdKM)
}

func distanceScore(distanceKM, thresholdKM float64) float64 {
	if math.IsNaN(thresholdKM) || thresholdKM <= 0 {
		if distanceKM == 0 {
			return 1
		}
		return 0
	}
	return clamp(1-distanceKM/thresholdKM, 0, 1)
}
