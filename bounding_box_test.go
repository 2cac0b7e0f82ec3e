package citydb

import (
	"errors"
	"math"
	"slices"
	"sort"
	"testing"

	"github.com/paulmach/orb"
)

func TestEncodeBoundingBoxKey(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     string
	}{
		{0, 0, "+000.00_+000.00"},
		{90, 180, "+090.00_+180.00"},
		{-90, -180, "-090.00_-180.00"},
		{74, -100, "+074.00_-100.00"},
		{-13, 158, "-013.00_+158.00"},

		// Coordinates are floored, not truncated toward zero.
		{-1.80, 0, "-002.00_+000.00"},
		{-1.20, 0, "-001.50_+000.00"},
		{89.99, 0, "+089.50_+000.00"},
		{1.20, 0, "+001.00_+000.00"},
		{0, -7.99, "+000.00_-008.00"},
		{0, -7.01, "+000.00_-007.50"},
		{0, 8.60, "+000.00_+008.50"},
		{0, 179.15, "+000.00_+179.00"},

		{0, 1.000001, "+000.00_+001.00"},
		{0, 1.999999, "+000.00_+001.50"},
		{0, 1.500001, "+000.00_+001.50"},
		{0, 1.499999, "+000.00_+001.00"},
		{-0.1, -0.0001, "-000.50_-000.50"},
		{-37.814, 144.96332, "-038.00_+144.50"},

		// Just below an edge stays in the lower cell.
		{-1e-10, 1e-10, "-000.50_+000.00"},
		{-2.0000001, 0, "-002.50_+000.00"},
	}
	for _, tt := range tests {
		if got := EncodeBoundingBoxKey(tt.lat, tt.lng, DefaultBucketWidth); got != tt.want {
			t.Errorf("EncodeBoundingBoxKey(%v, %v) = %q, want %q", tt.lat, tt.lng, got, tt.want)
		}
	}
}

func TestEncodeBoundingBoxKeyWidths(t *testing.T) {
	tests := []struct {
		lat, lng, width float64
		want            string
	}{
		{-37.814, 144.96332, 1, "-038.00_+144.00"},
		{-37.814, 144.96332, 0.1, "-037.90_+144.90"},
		{0.3, 0.7, 0.1, "+000.30_+000.70"},
		{-37.814, 144.96332, 0.25, "-038.00_+144.75"},
		{12.3, 45.6, 10, "+010.00_+040.00"},
		{-12.3, -45.6, 10, "-020.00_-050.00"},
		{-0.03, 0.07, 0.01, "-000.03_+000.07"},
		{-1e-10, 0, 0.01, "-000.01_+000.00"},
		// Invalid widths fall back to the default.
		{-37.814, 144.96332, 0, "-038.00_+144.50"},
		{-37.814, 144.96332, -1, "-038.00_+144.50"},
		{-37.814, 144.96332, math.NaN(), "-038.00_+144.50"},
	}
	for _, tt := range tests {
		if got := EncodeBoundingBoxKey(tt.lat, tt.lng, tt.width); got != tt.want {
			t.Errorf("EncodeBoundingBoxKey(%v, %v, %v) = %q, want %q", tt.lat, tt.lng, tt.width, got, tt.want)
		}
	}
}

func TestEncodeBoundingBoxKeyIsTotal(t *testing.T) {
	inputs := [][2]float64{
		{math.NaN(), 0},
		{0, math.Inf(1)},
		{1000, -1000},
	}
	for _, in := range inputs {
		key := EncodeBoundingBoxKey(in[0], in[1], DefaultBucketWidth)
		if key == "" {
			t.Errorf("EncodeBoundingBoxKey(%v, %v) returned an empty key", in[0], in[1])
		}
		if _, err := DecodeBoundingBoxKey(key); !errors.Is(err, ErrInvalidBoundingBoxKey) {
			t.Errorf("key %q for out-of-range input should not decode, got %v", key, err)
		}
	}
}

func TestDecodeBoundingBoxKey(t *testing.T) {
	tests := []struct {
		key      string
		lat, lng float64
	}{
		{"+001.23_+000.00", 1.23, 0},
		{"-080.00_+000.00", -80, 0},
		{"+000.00_-009.34", 0, -9.34},
		{"+000.00_+175.43", 0, 175.43},
		{"+090.00_+180.00", 90, 180},
		{"-090.00_-180.00", -90, -180},
	}
	for _, tt := range tests {
		c, err := DecodeBoundingBoxKey(tt.key)
		if err != nil {
			t.Errorf("DecodeBoundingBoxKey(%q) error: %v", tt.key, err)
			continue
		}
		if c.Latitude != tt.lat || c.Longitude != tt.lng {
			t.Errorf("DecodeBoundingBoxKey(%q) = %v, want %v,%v", tt.key, c, tt.lat, tt.lng)
		}
	}
}

func TestDecodeBoundingBoxKeyInvalid(t *testing.T) {
	keys := []string{
		"",
		"+000.00_-abc.de",
		"-abc.de_+000.00",
		"-091.00_+000.00",
		"+000.00_+200.00",
		"+000.00",
		"+000.00_+000.00_+000.00",
		"000.00_+000.00",
		"+0.0_+000.00",
		"+000.00_+000.0",
		" +000.00_+000.00",
		"+000.00,+000.00",
		"+NaN_+000.00",
	}
	for _, key := range keys {
		c, err := DecodeBoundingBoxKey(key)
		if !errors.Is(err, ErrInvalidBoundingBoxKey) {
			t.Errorf("DecodeBoundingBoxKey(%q) = %v, %v; want ErrInvalidBoundingBoxKey", key, c, err)
		}
	}
}

func TestBoundingBoxKeyRoundTrip(t *testing.T) {
	points := [][2]float64{
		{0, 0}, {-37.814, 144.96332}, {51.50853, -0.12574}, {-1.8, -7.99},
		{89.99, 179.99}, {-89.99, -179.99}, {40.71427, -74.00597}, {-33.86785, 151.20732},
		{-1e-10, 1e-10}, {-37.5 - 1e-12, 144.5},
	}
	for _, width := range []float64{0.5, 1, 0.25, 0.1, 0.01} {
		for _, p := range points {
			key := EncodeBoundingBoxKey(p[0], p[1], width)
			sw, err := DecodeBoundingBoxKey(key)
			if err != nil {
				t.Fatalf("round trip of %v at width %v: %v", p, width, err)
			}
			if sw.Latitude > p[0] || sw.Longitude > p[1] {
				t.Errorf("%v at width %v decoded to %v, not its southwest corner", p, width, sw)
			}
			if p[0]-sw.Latitude >= width+1e-9 || p[1]-sw.Longitude >= width+1e-9 {
				t.Errorf("%v at width %v decoded to %v, more than one cell away", p, width, sw)
			}
			if again := EncodeBoundingBoxKey(sw.Latitude, sw.Longitude, width); again != key {
				t.Errorf("corner %v re-encodes to %q, want %q", sw, again, key)
			}
		}
	}
}

func TestBoundingBox(t *testing.T) {
	b := NewBoundingBox(-37.814, 144.96332, DefaultBucketWidth)
	if b.Key != "-038.00_+144.50" {
		t.Fatalf("Key = %q", b.Key)
	}
	want := orb.Bound{Min: orb.Point{144.5, -38}, Max: orb.Point{145, -37.5}}
	if !b.Bound().Equal(want) {
		t.Errorf("Bound() = %v, want %v", b.Bound(), want)
	}
	if !b.Contains(-37.6, 144.99) {
		t.Error("expected cell to contain -37.6,144.99")
	}
	if b.Contains(-37.5, 144.99) {
		t.Error("north edge belongs to the next cell")
	}

	parsed, err := ParseBoundingBox(b.Key, DefaultBucketWidth)
	if err != nil {
		t.Fatal(err)
	}
	if parsed != b {
		t.Errorf("ParseBoundingBox = %+v, want %+v", parsed, b)
	}
	if _, err := ParseBoundingBox("nope", 1); !errors.Is(err, ErrInvalidBoundingBoxKey) {
		t.Errorf("ParseBoundingBox(nope) err = %v", err)
	}
}

func TestBoundingBoxNeighbours(t *testing.T) {
	got := NewBoundingBox(0.1, 0.1, DefaultBucketWidth).Neighbours()
	want := []string{
		"+000.50_+000.00", "+000.50_+000.50", "+000.50_-000.50",
		"+000.00_+000.50", "+000.00_-000.50",
		"-000.50_+000.00", "-000.50_+000.50", "-000.50_-000.50",
	}
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("Neighbours() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Neighbours()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Wraps at the antimeridian and includes the row holding the pole.
	edge := NewBoundingBox(89.9, 179.9, DefaultBucketWidth).Neighbours()
	if len(edge) != 8 {
		t.Fatalf("expected 8 neighbours below the pole, got %v", edge)
	}
	for _, want := range []string{"+089.50_-180.00", "+090.00_+179.50", "+090.00_-180.00"} {
		if !slices.Contains(edge, want) {
			t.Errorf("expected neighbour %s in %v", want, edge)
		}
	}

	pole := NewBoundingBox(90, 0.6, DefaultBucketWidth).Neighbours()
	sort.Strings(pole)
	wantPole := []string{
		"+089.50_+000.00", "+089.50_+000.50", "+089.50_+001.00",
		"+090.00_+000.00", "+090.00_+001.00",
	}
	if !slices.Equal(pole, wantPole) {
		t.Errorf("Neighbours() at the pole = %v, want %v", pole, wantPole)
	}

	south := NewBoundingBox(-90, 0.1, DefaultBucketWidth).Neighbours()
	if len(south) != 5 {
		t.Errorf("expected 5 neighbours at the south pole, got %v", south)
	}
}
