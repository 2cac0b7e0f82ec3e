package citydb

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Bounding-box keys have the form "SDDD.mm_SDDD.mm": latitude then longitude of
// the southwest corner of a grid cell, each with a sign, three zero-padded
// integer degrees and two decimal digits.
const boundingBoxKeySeparator = "_"

var keyComponentPattern = regexp.MustCompile(`^[+-][0-9]{3}\.[0-9]{2}$`)

// gridTolerance is the relative error, in units of machine epsilon, absorbed
// when a coordinate sits on a cell edge, e.g. 0.3/0.1 evaluating to
// 2.9999999999999996. Points measurably below an edge stay in the lower cell.
const gridTolerance = 8 * 0x1p-52

// EncodeBoundingBoxKey returns the key of the cell of the given width that
// contains (lat, lng). Each coordinate is floored to a multiple of width, so
// -1.8 falls in the cell starting at -2.0. A non-positive or non-finite width
// is replaced by DefaultBucketWidth.
//
// Widths should be multiples of 0.01 degrees; the key only carries two decimal
// digits, so other widths round-trip to the nearest hundredth.
func EncodeBoundingBoxKey(lat, lng, width float64) string {
	if !validWidth(width) {
		width = DefaultBucketWidth
	}
	return formatKeyComponent(cellFloor(lat, width)) + boundingBoxKeySeparator + formatKeyComponent(cellFloor(lng, width))
}

// DecodeBoundingBoxKey returns the southwest corner encoded in key. Malformed
// keys and out-of-range coordinates return ErrInvalidBoundingBoxKey.
func DecodeBoundingBoxKey(key string) (Coordinate, error) {
	parts := strings.Split(key, boundingBoxKeySeparator)
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidBoundingBoxKey, key)
	}
	lat, ok := parseKeyComponent(parts[0])
	if !ok {
		return Coordinate{}, fmt.Errorf("%w: bad latitude in %q", ErrInvalidBoundingBoxKey, key)
	}
	lng, ok := parseKeyComponent(parts[1])
	if !ok {
		return Coordinate{}, fmt.Errorf("%w: bad longitude in %q", ErrInvalidBoundingBoxKey, key)
	}
	c := Coordinate{Latitude: lat, Longitude: lng}
	if !c.Valid() {
		return Coordinate{}, fmt.Errorf("%w: %q out of range", ErrInvalidBoundingBoxKey, key)
	}
	return c, nil
}

func cellFloor(v, width float64) float64 {
	q := v / width
	if r := math.Round(q); math.Abs(q-r) <= gridTolerance*math.Max(math.Abs(q), 1) {
		q = r
	}
	return math.Floor(q) * width
}

func formatKeyComponent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	hundredths := math.Round(math.Abs(v) * 100)
	sign := '+'
	if v < 0 && hundredths != 0 {
		sign = '-'
	}
	whole := math.Floor(hundredths / 100)
	return fmt.Sprintf("%c%03.0f.%02.0f", sign, whole, hundredths-whole*100)
}

func parseKeyComponent(s string) (float64, bool) {
	if !keyComponentPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// BoundingBox is one grid cell.
type BoundingBox struct {
	Key       string
	SouthWest Coordinate
	Width     float64
}

// NewBoundingBox returns the cell of the given width containing (lat, lng).
func NewBoundingBox(lat, lng, width float64) BoundingBox {
	if !validWidth(width) {
		width = DefaultBucketWidth
	}
	key := EncodeBoundingBoxKey(lat, lng, width)
	return BoundingBox{
		Key:       key,
		SouthWest: Coordinate{Latitude: cellFloor(lat, width), Longitude: cellFloor(lng, width)},
		Width:     width,
	}
}

// ParseBoundingBox decodes key into a cell of the given width.
func ParseBoundingBox(key string, width float64) (BoundingBox, error) {
	sw, err := DecodeBoundingBoxKey(key)
	if err != nil {
		return BoundingBox{}, err
	}
	if !validWidth(width) {
		width = DefaultBucketWidth
	}
	return BoundingBox{Key: key, SouthWest: sw, Width: width}, nil
}

// Bound returns the cell rectangle, clipped to the valid coordinate range.
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.SouthWest.Longitude, b.SouthWest.Latitude},
		Max: orb.Point{
			math.Min(b.SouthWest.Longitude+b.Width, 180),
			math.Min(b.SouthWest.Latitude+b.Width, 90),
		},
	}
}

// Contains reports whether (lat, lng) falls in this cell.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return EncodeBoundingBoxKey(lat, lng, b.Width) == b.Key
}

// Neighbours returns the keys of the up to eight cells surrounding b.
// Longitudes wrap at the antimeridian. Rows starting beyond a pole are
// omitted; the row starting exactly at latitude 90 holds the pole itself.
func (b BoundingBox) Neighbours() []string {
	keys := make([]string, 0, 8)
	seen := map[string]bool{b.Key: true}
	for dy := -1; dy <= 1; dy++ {
		row := cellFloor(b.SouthWest.Latitude+float64(dy)*b.Width, b.Width)
		if row < -90 || row > 90 {
			continue
		}
		lat := math.Min(row+0.5*b.Width, 90)
		for dx := -1; dx <= 1; dx++ {
			lng := wrapLongitude(b.SouthWest.Longitude + (float64(dx)+0.5)*b.Width)
			key := EncodeBoundingBoxKey(lat, lng, b.Width)
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	return keys
}

func wrapLongitude(lng float64) float64 {
	for lng >= 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return lng
}
