package importer

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/model"
)

// columnAliases maps normalized header names to place fields.
var columnAliases = map[string]string{
	"id":        "id",
	"place_id":  "id",
	"name":      "name",
	"title":     "name",
	"kind":      "kind",
	"type":      "kind",
	"category":  "kind",
	"city":      "city",
	"town":      "city",
	"country":   "country",
	"lat":       "lat",
	"latitude":  "lat",
	"lon":       "lon",
	"lng":       "lon",
	"long":      "lon",
	"longitude": "lon",
	"status":    "status",
	"source":    "source",
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.NewReplacer(" ", "_", "-", "_").Replace(h)
}

// columnMap records the column index of each known field.
type columnMap map[string]int

// newColumnMap resolves a header row. Unknown columns are ignored; the first
// column wins when two headers map to the same field.
func newColumnMap(headers []string) (columnMap, error) {
	cols := make(columnMap)
	for i, h := range headers {
		field, ok := columnAliases[normalizeHeader(h)]
		if !ok {
			continue
		}
		if _, seen := cols[field]; !seen {
			cols[field] = i
		}
	}
	if _, ok := cols["name"]; !ok {
		return nil, eris.New("importer: header has no name column")
	}
	return cols, nil
}

func (c columnMap) get(row []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// place converts one data row. line is used in error messages.
func (c columnMap) place(row []string, line int) (model.Place, error) {
	p := model.Place{
		ID:      c.get(row, "id"),
		Name:    c.get(row, "name"),
		Kind:    c.get(row, "kind"),
		City:    c.get(row, "city"),
		Country: c.get(row, "country"),
		Status:  model.PlaceStatus(strings.ToLower(c.get(row, "status"))),
		Source:  model.PlaceSource(strings.ToLower(c.get(row, "source"))),
	}

	coords, err := parseCoords(c.get(row, "lat"), c.get(row, "lon"))
	if err != nil {
		return model.Place{}, eris.Wrapf(err, "importer: line %d", line)
	}
	p.Coords = coords
	return p, nil
}

// parseCoords returns nil when either value is blank.
func parseCoords(lat, lon string) (*model.Coords, error) {
	if lat == "" || lon == "" {
		return nil, nil
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, eris.Errorf("invalid latitude %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, eris.Errorf("invalid longitude %q", lon)
	}
	return &model.Coords{Lat: la, Lon: lo}, nil
}

// blankRow reports whether every cell is empty.
func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
