package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/place-dedup/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	country    TEXT NOT NULL DEFAULT '',
	lat        REAL,
	lon        REAL,
	status     TEXT NOT NULL DEFAULT 'active',
	source     TEXT NOT NULL DEFAULT 'manual',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dismissed_pairs (
	place_a      TEXT NOT NULL,
	place_b      TEXT NOT NULL,
	dismissed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (place_a, place_b)
);

CREATE INDEX IF NOT EXISTS idx_places_status ON places(status);
CREATE INDEX IF NOT EXISTS idx_places_created_at ON places(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteUpsertPlace = `
INSERT INTO places (id, name, kind, city, country, lat, lon, status, source, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	kind = excluded.kind,
	city = excluded.city,
	country = excluded.country,
	lat = excluded.lat,
	lon = excluded.lon,
	status = excluded.status,
	source = excluded.source,
	updated_at = excluded.updated_at`

func (s *SQLiteStore) UpsertPlaces(ctx context.Context, places []model.Place) (int64, error) {
	prepared, err := preparePlaces(places, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if len(prepared) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin upsert places")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertPlace)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert place")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, p := range prepared {
		lat, lon := coordArgs(p.Coords)
		res, err := stmt.ExecContext(ctx,
			p.ID, p.Name, p.Kind, p.City, p.Country, lat, lon,
			string(p.Status), string(p.Source), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert place %s", p.ID)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: rows affected")
		}
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit upsert places")
	}
	return n, nil
}

const placeColumns = `id, name, kind, city, country, lat, lon, status, source, created_at, updated_at`

func (s *SQLiteStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = ?`,
		id,
	)
	p, err := scanPlace(row)
	if eris.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get place %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPlaces(ctx context.Context, filter PlaceFilter) ([]model.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE 1=1`
	var args []any

	if len(filter.Statuses) > 0 {
		query += ` AND status IN (?` + strings.Repeat(`, ?`, len(filter.Statuses)-1) + `)`
		for _, st := range statusStrings(filter.Statuses) {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list places")
	}
	defer rows.Close()

	places := []model.Place{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		places = append(places, *p)
	}
	return places, eris.Wrap(rows.Err(), "sqlite: list places iterate")
}

func (s *SQLiteStore) DismissPair(ctx context.Context, placeA, placeB string) error {
	pair, err := validatePair(placeA, placeB)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO dismissed_pairs (place_a, place_b, dismissed_at) VALUES (?, ?, ?)
		 ON CONFLICT(place_a, place_b) DO NOTHING`,
		pair.PlaceA, pair.PlaceB, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: dismiss pair %s", pair.Key())
}

func (s *SQLiteStore) UndismissPair(ctx context.Context, placeA, placeB string) error {
	pair, err := validatePair(placeA, placeB)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM dismissed_pairs WHERE place_a = ? AND place_b = ?`,
		pair.PlaceA, pair.PlaceB,
	)
	return eris.Wrapf(err, "sqlite: undismiss pair %s", pair.Key())
}

func (s *SQLiteStore) ListDismissedPairs(ctx context.Context) ([]model.DismissedPair, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT place_a, place_b, dismissed_at FROM dismissed_pairs ORDER BY place_a, place_b`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dismissed pairs")
	}
	defer rows.Close()

	pairs := []model.DismissedPair{}
	for rows.Next() {
		var p model.DismissedPair
		if err := rows.Scan(&p.PlaceA, &p.PlaceB, &p.DismissedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dismissed pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: list dismissed pairs iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanPlace(row scannable) (*model.Place, error) {
	var p model.Place
	var lat, lon sql.NullFloat64
	var status, source string

	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.City, &p.Country, &lat, &lon,
		&status, &source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = model.PlaceStatus(status)
	p.Source = model.PlaceSource(source)
	if lat.Valid && lon.Valid {
		p.Coords = coordsFrom(&lat.Float64, &lon.Float64)
	}
	return &p, nil
}
