package citydb

import (
	"math"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb/geojson"
)

// earthRadiusKm converts s2 angles on the unit sphere to kilometres.
const earthRadiusKm = 6371.0

// BucketIndex groups cities by bounding-box key. It is the in-memory form of
// the city-to-bucket associations a persistence adapter writes out.
// Safe for concurrent reads.
type BucketIndex struct {
	width   float64
	cities  []City
	buckets map[string][]int // key -> indices into cities, in input order
}

// NewBucketIndex buckets cities into cells of the given width. A non-positive
// width falls back to DefaultBucketWidth.
func NewBucketIndex(cities []City, width float64) *BucketIndex {
	if !validWidth(width) {
		width = DefaultBucketWidth
	}
	idx := &BucketIndex{
		width:   width,
		cities:  cities,
		buckets: make(map[string][]int),
	}
	for i, c := range cities {
		key := c.BoundingBoxKey(width)
		idx.buckets[key] = append(idx.buckets[key], i)
	}
	return idx
}

// Width returns the cell width in degrees.
func (b *BucketIndex) Width() float64 { return b.width }

// Len returns the number of non-empty buckets.
func (b *BucketIndex) Len() int { return len(b.buckets) }

// Keys returns the bucket keys in lexical order.
func (b *BucketIndex) Keys() []string {
	keys := make([]string, 0, len(b.buckets))
	for k := range b.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cities returns the cities in the bucket with the given key, in input order.
func (b *BucketIndex) Cities(key string) []City {
	indices := b.buckets[key]
	out := make([]City, len(indices))
	for i, idx := range indices {
		out[i] = b.cities[idx]
	}
	return out
}

// Box returns the BoundingBox for a key present in the index.
func (b *BucketIndex) Box(key string) (BoundingBox, bool) {
	if _, ok := b.buckets[key]; !ok {
		return BoundingBox{}, false
	}
	box, err := ParseBoundingBox(key, b.width)
	return box, err == nil
}

// nearestCandidate pairs a city with its distance from the query point.
type nearestCandidate struct {
	city City
	dist float64 // radians on the unit sphere
}

// Nearest returns the closest city to (lat, lng) among the query cell and its
// eight neighbours, along with its distance in kilometres. Ties are broken by
// population (descending) then name. ok is false if those cells are empty.
func (b *BucketIndex) Nearest(lat, lng float64) (city City, km float64, ok bool) {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return City{}, 0, false
	}

	queryLL := s2.LatLngFromDegrees(lat, lng)
	box := NewBoundingBox(lat, lng, b.width)

	seen := make(map[string]bool, 9)
	var candidates []nearestCandidate
	for _, key := range append([]string{box.Key}, box.Neighbours()...) {
		if seen[key] {
			continue
		}
		seen[key] = true
		for _, i := range b.buckets[key] {
			c := b.cities[i]
			cityLL := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
			candidates = append(candidates, nearestCandidate{city: c, dist: float64(queryLL.Distance(cityLL))})
		}
	}
	if len(candidates) == 0 {
		return City{}, 0, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		if candidates[i].city.Population != candidates[j].city.Population {
			return candidates[i].city.Population > candidates[j].city.Population
		}
		return candidates[i].city.Name < candidates[j].city.Name
	})
	best := candidates[0]
	return best.city, best.dist * earthRadiusKm, true
}

// FeatureCollection renders every bucket as a GeoJSON polygon with its key and
// city count as properties.
func (b *BucketIndex) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, key := range b.Keys() {
		box, ok := b.Box(key)
		if !ok {
			continue
		}
		f := geojson.NewFeature(box.Bound().ToPolygon())
		f.Properties["key"] = key
		f.Properties["cities"] = len(b.buckets[key])
		fc.Append(f)
	}
	return fc
}
