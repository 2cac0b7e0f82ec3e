package citydb

import (
	"context"
	"fmt"
)

// CityWriter is implemented by persistence adapters. SaveCities stores cities
// in order and returns their ids; LinkBuckets records each city's
// bounding-box membership.
type CityWriter interface {
	SaveCities(ctx context.Context, cities []City) ([]int64, error)
	LinkBuckets(ctx context.Context, ids []int64, cities []City, width float64) error
}

// Persist writes cities through w and links them to bounding boxes of the
// given width.
func Persist(ctx context.Context, w CityWriter, cities []City, width float64) error {
	if !validWidth(width) {
		width = DefaultBucketWidth
	}
	ids, err := w.SaveCities(ctx, cities)
	if err != nil {
		return fmt.Errorf("saving cities: %w", err)
	}
	if err := w.LinkBuckets(ctx, ids, cities, width); err != nil {
		return fmt.Errorf("linking bounding boxes: %w", err)
	}
	return nil
}
