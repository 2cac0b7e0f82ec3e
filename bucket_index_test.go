package citydb

import (
	"encoding/json"
	"math"
	"testing"
)

func testCity(name string, lat, lng float64, pop int64) City {
	return City{
		Name:        name,
		ASCIIName:   name,
		TimeZone:    "UTC",
		CountryCode: "AU",
		CountryName: "Australia",
		Population:  pop,
		Latitude:    lat,
		Longitude:   lng,
	}
}

var bucketFixture = []City{
	testCity("Melbourne", -37.814, 144.96332, 4246375),
	testCity("St Kilda", -37.8676, 144.98099, 20230),
	testCity("Geelong", -38.14711, 144.36069, 268277),
	testCity("Sydney", -33.86785, 151.20732, 4627345),
	testCity("Suva", -18.14161, 178.44149, 77366),
	testCity("Lautoka", -17.61686, 177.4505, 52500),
	testCity("Taveuni", -16.8, 179.9, 9000),
}

func TestBucketIndexKeys(t *testing.T) {
	idx := NewBucketIndex(bucketFixture, DefaultBucketWidth)
	if idx.Width() != DefaultBucketWidth {
		t.Errorf("Width() = %v", idx.Width())
	}
	want := []string{
		"-017.00_+179.50",
		"-018.00_+177.00",
		"-018.50_+178.00",
		"-034.00_+151.00",
		"-038.00_+144.50",
		"-038.50_+144.00",
	}
	keys := idx.Keys()
	if idx.Len() != len(want) || len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}

	cities := idx.Cities("-038.00_+144.50")
	if len(cities) != 2 || cities[0].Name != "Melbourne" || cities[1].Name != "St Kilda" {
		t.Errorf("Cities(-038.00_+144.50) = %v", cities)
	}
	if len(idx.Cities("+000.00_+000.00")) != 0 {
		t.Error("expected no cities in an empty cell")
	}
	if _, ok := idx.Box("+000.00_+000.00"); ok {
		t.Error("Box should miss for an empty cell")
	}
}

func TestBucketIndexDefaultWidth(t *testing.T) {
	if w := NewBucketIndex(nil, -3).Width(); w != DefaultBucketWidth {
		t.Errorf("Width() = %v, want %v", w, DefaultBucketWidth)
	}
}

func TestBucketIndexNearest(t *testing.T) {
	idx := NewBucketIndex(bucketFixture, DefaultBucketWidth)

	tests := []struct {
		name     string
		lat, lng float64
		want     string
		maxKm    float64
	}{
		{"same cell", -37.82, 144.97, "Melbourne", 2},
		{"neighbour cell", -37.99, 144.51, "Geelong", 25},
		{"across antimeridian", -16.8, -179.9, "Taveuni", 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, km, ok := idx.Nearest(tt.lat, tt.lng)
			if !ok {
				t.Fatal("expected a match")
			}
			if c.Name != tt.want {
				t.Errorf("Nearest = %s, want %s", c.Name, tt.want)
			}
			if km > tt.maxKm {
				t.Errorf("distance %.1f km exceeds %.1f km", km, tt.maxKm)
			}
		})
	}

	if _, _, ok := idx.Nearest(0, 0); ok {
		t.Error("expected no match in the Gulf of Guinea")
	}
	if _, _, ok := idx.Nearest(math.NaN(), 0); ok {
		t.Error("expected no match for NaN")
	}
}

func TestBucketIndexNearestTieBreak(t *testing.T) {
	cities := []City{
		testCity("Smallville", 10.1, 10.1, 100),
		testCity("Bigtown", 10.1, 10.1, 5000),
		testCity("Alpha", 10.1, 10.1, 5000),
	}
	c, _, ok := NewBucketIndex(cities, DefaultBucketWidth).Nearest(10.2, 10.2)
	if !ok || c.Name != "Alpha" {
		t.Errorf("Nearest = %v, want Alpha", c.Name)
	}
}

func TestBucketIndexNearestAtPole(t *testing.T) {
	cities := []City{
		testCity("North Pole", 90, 0, 0),
		testCity("Ice Station", 89.9, 0.6, 30),
	}
	idx := NewBucketIndex(cities, DefaultBucketWidth)

	c, km, ok := idx.Nearest(90, 0.6)
	if !ok || c.Name != "North Pole" {
		t.Fatalf("Nearest(90, 0.6) = %v, want North Pole", c.Name)
	}
	if km > 0.001 {
		t.Errorf("distance %.3f km, want 0 at the pole", km)
	}

	c, _, ok = NewBucketIndex(cities[:1], DefaultBucketWidth).Nearest(89.8, 0.1)
	if !ok || c.Name != "North Pole" {
		t.Errorf("Nearest(89.8, 0.1) = %v, want North Pole from the row above", c.Name)
	}
}

func TestBucketIndexFeatureCollection(t *testing.T) {
	idx := NewBucketIndex(bucketFixture[:3], DefaultBucketWidth)
	fc := idx.FeatureCollection()
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Properties["key"] != "-038.00_+144.50" || f.Properties["cities"] != 2 {
		t.Errorf("unexpected properties: %v", f.Properties)
	}
	if f.Geometry.GeoJSONType() != "Polygon" {
		t.Errorf("geometry = %s, want Polygon", f.Geometry.GeoJSONType())
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Errorf("type = %v", decoded["type"])
	}
}
