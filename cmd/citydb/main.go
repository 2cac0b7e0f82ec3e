// Command citydb builds a city database from geonames exports.
//
// Usage:
//
//	citydb build --cities cities5000.txt --admin1 admin1CodesASCII.txt --db cities.sqlite
//	citydb key -- -37.81 144.96
//	citydb decode -- -038.00_+144.50
//	citydb buckets --cities cities5000.zip --admin1 admin1CodesASCII.txt --out cells.geojson
//
// Settings may also come from a YAML file given with --config; flags win.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
