// Package importer reads place records from CSV, XLSX, JSON, and YAML files.
package importer

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-dedup/internal/model"
)

// Format identifies an import file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat infers the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("importer: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadFile reads every place in the file at path. The format follows the
// extension; .tsv files are read as tab-delimited CSV.
func ReadFile(ctx context.Context, path string) ([]model.Place, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, eris.Wrapf(err, "importer: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	opts := Options{}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = '\t'
	}

	places, err := Read(ctx, f, format, opts)
	if err != nil {
		return nil, eris.Wrapf(err, "importer: read %s", path)
	}

	zap.L().Info("places read",
		zap.String("component", "importer"),
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("places", len(places)),
	)
	return places, nil
}

// Options tunes Read.
type Options struct {
	Delimiter rune   // CSV only; default ','
	Sheet     string // XLSX only; default is the first sheet
}

// Read parses places from r in the given format. Records without an ID get
// a generated UUID; missing source and status default to import and active.
func Read(ctx context.Context, r io.Reader, format Format, opts Options) ([]model.Place, error) {
	var (
		places []model.Place
		err    error
	)

	switch format {
	case FormatCSV:
		places, err = ReadCSV(ctx, r, opts.Delimiter)
	case FormatXLSX:
		var data []byte
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "importer: read xlsx")
		}
		places, err = ReadXLSX(data, XLSXOptions{SheetName: opts.Sheet})
	case FormatJSON:
		places, err = ReadJSON(ctx, r)
	case FormatYAML:
		places, err = ReadYAML(r)
	default:
		return nil, eris.Errorf("importer: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return finalize(places)
}

// finalize applies import defaults and rejects records without a name.
func finalize(places []model.Place) ([]model.Place, error) {
	out := make([]model.Place, 0, len(places))
	for i, p := range places {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.Name == "" {
			return nil, eris.Errorf("importer: record %d: name is required", i+1)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.Source == "" {
			p.Source = model.PlaceSourceImport
		}
		if p.Status == "" {
			p.Status = model.PlaceStatusActive
		}
		if !p.Status.Valid() {
			return nil, eris.Errorf("importer: record %d: invalid status %q", i+1, p.Status)
		}
		if p.Coords != nil && !p.Coords.Valid() {
			p.Coords = nil
		}
		out = append(out, p)
	}
	return out, nil
}
