package dedupe

import (
	"strings"

	"github.com/sells-group/place-dedup/internal/model"
)

// equalFold compares two categorical values case-insensitively after trimming.
// A blank value on either side never matches.
func equalFold(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

// KindMatch reports whether two places share a kind.
func KindMatch(a, b model.Place) bool { return equalFold(a.Kind, b.Kind) }

// CityMatch reports whether two places share a city.
func CityMatch(a, b model.Place) bool { return equalFold(a.City, b.City) }

// CountryMatch reports whether two places share a country.
func CountryMatch(a, b model.Place) bool { return equalFold(a.Country, b.Country) }
