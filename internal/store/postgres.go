package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/place-dedup/internal/db"
	"github.com/sells-group/place-dedup/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
	// ConnectAttempts bounds the initial ping retries. Default 1 (no retry).
	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	attempts := 1
	if poolCfg != nil {
		attempts = poolCfg.ConnectAttempts
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pingWithRetry(ctx, attempts, pool.Ping); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership of it.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS places (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	country    TEXT NOT NULL DEFAULT '',
	lat        DOUBLE PRECISION,
	lon        DOUBLE PRECISION,
	status     TEXT NOT NULL DEFAULT 'active',
	source     TEXT NOT NULL DEFAULT 'manual',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS dismissed_pairs (
	place_a      TEXT NOT NULL,
	place_b      TEXT NOT NULL,
	dismissed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (place_a, place_b),
	CHECK (place_a < place_b)
);

CREATE INDEX IF NOT EXISTS idx_places_status ON places(status);
CREATE INDEX IF NOT EXISTS idx_places_created_at ON places(created_at, id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var placeUpsert = db.UpsertConfig{
	Table:        "places",
	Columns:      []string{"id", "name", "kind", "city", "country", "lat", "lon", "status", "source", "created_at", "updated_at"},
	ConflictKeys: []string{"id"},
	UpdateCols:   []string{"name", "kind", "city", "country", "lat", "lon", "status", "source", "updated_at"},
}

func (s *PostgresStore) UpsertPlaces(ctx context.Context, places []model.Place) (int64, error) {
	prepared, err := preparePlaces(places, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	rows := make([][]any, len(prepared))
	for i, p := range prepared {
		lat, lon := coordArgs(p.Coords)
		rows[i] = []any{
			p.ID, p.Name, p.Kind, p.City, p.Country, lat, lon,
			string(p.Status), string(p.Source), p.CreatedAt, p.UpdatedAt,
		}
	}

	n, err := db.BulkUpsert(ctx, s.pool, placeUpsert, rows)
	return n, eris.Wrap(err, "postgres: upsert places")
}

func (s *PostgresStore) GetPlace(ctx context.Context, id string) (*model.Place, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+placeColumns+` FROM places WHERE id = $1`,
		id,
	)
	p, err := scanPgPlace(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get place %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPlaces(ctx context.Context, filter PlaceFilter) ([]model.Place, error) {
	query := `SELECT ` + placeColumns + ` FROM places WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.Statuses) > 0 {
		query += fmt.Sprintf(` AND status = ANY($%d)`, argIdx)
		args = append(args, statusStrings(filter.Statuses))
		argIdx++
	}
	query += ` ORDER BY created_at, id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list places")
	}
	defer rows.Close()

	places := []model.Place{}
	for rows.Next() {
		p, err := scanPgPlace(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan place")
		}
		places = append(places, *p)
	}
	return places, eris.Wrap(rows.Err(), "postgres: list places iterate")
}

func (s *PostgresStore) DismissPair(ctx context.Context, placeA, placeB string) error {
	pair, err := validatePair(placeA, placeB)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO dismissed_pairs (place_a, place_b, dismissed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (place_a, place_b) DO NOTHING`,
		pair.PlaceA, pair.PlaceB, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: dismiss pair %s", pair.Key())
}

func (s *PostgresStore) UndismissPair(ctx context.Context, placeA, placeB string) error {
	pair, err := validatePair(placeA, placeB)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`DELETE FROM dismissed_pairs WHERE place_a = $1 AND place_b = $2`,
		pair.PlaceA, pair.PlaceB,
	)
	return eris.Wrapf(err, "postgres: undismiss pair %s", pair.Key())
}

func (s *PostgresStore) ListDismissedPairs(ctx context.Context) ([]model.DismissedPair, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT place_a, place_b, dismissed_at FROM dismissed_pairs ORDER BY place_a, place_b`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dismissed pairs")
	}
	defer rows.Close()

	pairs := []model.DismissedPair{}
	for rows.Next() {
		var p model.DismissedPair
		if err := rows.Scan(&p.PlaceA, &p.PlaceB, &p.DismissedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dismissed pair")
		}
		pairs = append(pairs, p)
	}
	return pairs, eris.Wrap(rows.Err(), "postgres: list dismissed pairs iterate")
}

func scanPgPlace(row scannable) (*model.Place, error) {
	var p model.Place
	var lat, lon *float64
	var status, source string

	err := row.Scan(&p.ID, &p.Name, &p.Kind, &p.City, &p.Country, &lat, &lon,
		&status, &source, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Status = model.PlaceStatus(status)
	p.Source = model.PlaceSource(source)
	p.Coords = coordsFrom(lat, lon)
	return &p, nil
}
