// Package citydb parses the geonames cities and admin1 exports into
// normalized City values and buckets them into fixed-width grid cells.
package citydb

import (
	"database/sql"
	"fmt"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// City is a normalized gazetteer entry. City is a comparable value: two cities
// are equal iff every field is equal, which is what deduplication relies on.
// Optional text fields use sql.NullString so a blank column stays distinguishable
// from a present one.
type City struct {
	Name           string         `db:"name"`
	ASCIIName      string         `db:"ascii_name"`
	AlternateNames sql.NullString `db:"alternate_names"`
	TimeZone       string         `db:"time_zone"`
	CountryCode    string         `db:"country_code"`
	CountryName    string         `db:"country_name"`
	Admin1Code     sql.NullString `db:"admin1_code"`
	Admin1Name     sql.NullString `db:"admin1_name"`
	Admin2Code     sql.NullString `db:"admin2_code"`
	Population     int64          `db:"population"`
	Latitude       float64        `db:"latitude"`
	Longitude      float64        `db:"longitude"`
}

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Coordinate returns the city position.
func (c City) Coordinate() Coordinate {
	return Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Geohash returns the 12 character geohash of the city position.
func (c City) Geohash() string {
	return geohash.Encode(c.Latitude, c.Longitude)
}

// BoundingBoxKey returns the key of the cell of the given width containing the city.
func (c City) BoundingBoxKey(width float64) string {
	return EncodeBoundingBoxKey(c.Latitude, c.Longitude, width)
}

func (c City) String() string {
	admin1 := "-"
	if c.Admin1Name.Valid {
		admin1 = c.Admin1Name.String
	}
	return fmt.Sprintf("%s, %s, %s (%d)", c.Name, admin1, c.CountryCode, c.Population)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
