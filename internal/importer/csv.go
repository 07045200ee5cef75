package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/model"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune            // default ','
	HasHeader  bool            // if true, first row is skipped but sent to HeaderCh
	HeaderCh   chan<- []string // optional: receives the header row
	Comment    rune            // comment character (0 = none)
	LazyQuotes bool
}

// StreamCSV reads CSV rows and sends them, trimmed, to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV reads places from a CSV stream whose first row is a header.
// Blank rows are skipped.
func ReadCSV(ctx context.Context, r io.Reader, delimiter rune) ([]model.Place, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
		Delimiter:  delimiter,
		HasHeader:  true,
		HeaderCh:   headerCh,
		Comment:    '#',
		LazyQuotes: true,
	})

	var (
		cols   columnMap
		places []model.Place
		line   = 1
	)
	for row := range rowCh {
		line++
		if cols == nil {
			var err error
			if cols, err = newColumnMap(<-headerCh); err != nil {
				drain(rowCh)
				return nil, err
			}
		}
		if blankRow(row) {
			continue
		}
		p, err := cols.place(row, line)
		if err != nil {
			drain(rowCh)
			return nil, err
		}
		places = append(places, p)
	}

	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	if cols == nil {
		// Header only, or empty input. A header without a name column is still an error.
		select {
		case h, ok := <-headerCh:
			if ok {
				if _, err := newColumnMap(h); err != nil {
					return nil, err
				}
			}
		default:
		}
	}
	return places, nil
}

// drain consumes the rest of a row channel so the producer can exit.
func drain(ch <-chan []string) {
	for range ch { //nolint:revive // intentionally empty
	}
}
