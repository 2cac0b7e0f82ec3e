// Package store persists parsed cities and their bounding-box memberships
// to SQLite.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/andreiashu/citydb"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cities (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		name            TEXT    NOT NULL,
		ascii_name      TEXT    NOT NULL,
		alternate_names TEXT,
		time_zone       TEXT    NOT NULL,
		country_code    TEXT    NOT NULL,
		country_name    TEXT    NOT NULL,
		admin1_code     TEXT,
		admin1_name     TEXT,
		admin2_code     TEXT,
		population      INTEGER NOT NULL,
		latitude        REAL    NOT NULL,
		longitude       REAL    NOT NULL,
		geohash         TEXT    NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bounding_boxes (
		location_identifier TEXT NOT NULL,
		width               REAL NOT NULL,
		PRIMARY KEY (location_identifier, width)
	)`,
	`CREATE TABLE IF NOT EXISTS bounding_box_cities (
		location_identifier TEXT    NOT NULL,
		width               REAL    NOT NULL,
		city_id             INTEGER NOT NULL REFERENCES cities(id),
		PRIMARY KEY (location_identifier, width, city_id),
		FOREIGN KEY (location_identifier, width) REFERENCES bounding_boxes(location_identifier, width)
	)`,
}

const insertCity = `INSERT INTO cities (
	name, ascii_name, alternate_names, time_zone, country_code, country_name,
	admin1_code, admin1_name, admin2_code, population, latitude, longitude, geohash
) VALUES (
	:name, :ascii_name, :alternate_names, :time_zone, :country_code, :country_name,
	:admin1_code, :admin1_name, :admin2_code, :population, :latitude, :longitude, :geohash
)`

// cityRow is the stored form of a City.
type cityRow struct {
	ID int64 `db:"id"`
	citydb.City
	Geohash string `db:"geohash"`
}

// ErrLengthMismatch is returned when ids and cities passed to LinkBuckets differ in length.
var ErrLengthMismatch = errors.New("ids and cities differ in length")

// SQLite is a city store backed by a single SQLite database.
type SQLite struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at dsn (a file path or ":memory:")
// and creates the tables if they do not exist.
func Open(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sqlx.ConnectContext(ctx, DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dsn, err)
	}
	// One connection: ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SaveCities inserts cities in one transaction and returns their row ids in
// the same order.
func (s *SQLite) SaveCities(ctx context.Context, cities []citydb.City) (ids []int64, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertCity)
	if err != nil {
		return nil, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	ids = make([]int64, 0, len(cities))
	for _, c := range cities {
		res, err := stmt.ExecContext(ctx, cityRow{City: c, Geohash: c.Geohash()})
		if err != nil {
			return nil, fmt.Errorf("inserting %s: %w", c.Name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("reading id of %s: %w", c.Name, err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ids, nil
}

// LinkBuckets records which bounding box of the given width each city falls
// in. ids[i] must be the row id of cities[i]. Boxes are keyed by identifier
// and width, so grids of different widths coexist in one database.
func (s *SQLite) LinkBuckets(ctx context.Context, ids []int64, cities []citydb.City, width float64) (err error) {
	if len(ids) != len(cities) {
		return fmt.Errorf("%w: %d ids, %d cities", ErrLengthMismatch, len(ids), len(cities))
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for i, c := range cities {
		key := c.BoundingBoxKey(width)
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO bounding_boxes (location_identifier, width) VALUES (?, ?)`,
			key, width); err != nil {
			return fmt.Errorf("inserting bounding box %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO bounding_box_cities (location_identifier, width, city_id) VALUES (?, ?, ?)`,
			key, width, ids[i]); err != nil {
			return fmt.Errorf("linking city %d to %s: %w", ids[i], key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CitiesInBox returns the cities linked to the bounding box with the given key
// and width, in insertion order.
func (s *SQLite) CitiesInBox(ctx context.Context, key string, width float64) ([]citydb.City, error) {
	var rows []cityRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT c.* FROM cities c
		JOIN bounding_box_cities b ON b.city_id = c.id
		WHERE b.location_identifier = ? AND b.width = ?
		ORDER BY c.id`, key, width)
	if err != nil {
		return nil, fmt.Errorf("selecting cities in %s: %w", key, err)
	}
	cities := make([]citydb.City, len(rows))
	for i, r := range rows {
		cities[i] = r.City
	}
	return cities, nil
}

// BoxKeys returns the stored bounding box keys of the given width in lexical order.
func (s *SQLite) BoxKeys(ctx context.Context, width float64) ([]string, error) {
	var keys []string
	if err := s.db.SelectContext(ctx, &keys,
		`SELECT location_identifier FROM bounding_boxes WHERE width = ? ORDER BY location_identifier`, width); err != nil {
		return nil, fmt.Errorf("selecting bounding boxes: %w", err)
	}
	return keys, nil
}

// CountCities returns the number of stored cities.
func (s *SQLite) CountCities(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM cities`); err != nil {
		return 0, fmt.Errorf("counting cities: %w", err)
	}
	return n, nil
}
