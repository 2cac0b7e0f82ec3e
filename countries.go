package citydb

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pariz/gountries"
)

// ErrCountryNotFound is returned by a CountryNamer for an unknown code.
var ErrCountryNotFound = errors.New("country code not recognised")

// CountryNamer resolves an ISO 3166-1 alpha-2 code to a display name.
type CountryNamer interface {
	CountryName(code string) (string, error)
}

// CountryNamerFunc adapts a function to the CountryNamer interface.
type CountryNamerFunc func(code string) (string, error)

func (f CountryNamerFunc) CountryName(code string) (string, error) { return f(code) }

// GountriesNamer resolves names from the gountries country tables.
type GountriesNamer struct {
	query *gountries.Query
}

// NewGountriesNamer loads the gountries tables.
func NewGountriesNamer() *GountriesNamer {
	return &GountriesNamer{query: gountries.New()}
}

// CountryName returns the common English name of the country. Only two-letter
// codes are accepted; gountries would otherwise also match alpha-3 codes.
func (n *GountriesNamer) CountryName(code string) (string, error) {
	if len(code) != 2 {
		return "", fmt.Errorf("%w: %q", ErrCountryNotFound, code)
	}
	country, err := n.query.FindCountryByAlpha(strings.ToUpper(code))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrCountryNotFound, code)
	}
	if country.Name.Common == "" {
		return "", fmt.Errorf("%w: %q has no name", ErrCountryNotFound, code)
	}
	return country.Name.Common, nil
}

// DefaultCountryNamer returns a process-wide GountriesNamer, loading the
// country tables on first use.
var DefaultCountryNamer = sync.OnceValue(func() CountryNamer {
	return NewGountriesNamer()
})

// MapCountryNamer resolves names from a fixed table, e.g. countryInfo.txt.
type MapCountryNamer map[string]string

// Column layout of geonames countryInfo.txt.
const (
	countryInfoNumberOfFields = 19
	countryInfoISOIndex       = 0
	countryInfoNameIndex      = 4
)

// ParseCountryInfo builds a MapCountryNamer from geonames countryInfo.txt
// contents. Comment lines ("#") and lines without 19 fields are skipped.
func ParseCountryInfo(contents string) MapCountryNamer {
	names := make(MapCountryNamer)
	for line := range Lines(contents, "\n") {
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := strings.SplitN(line, "\t", countryInfoNumberOfFields)
		if len(fields) != countryInfoNumberOfFields {
			continue
		}
		iso, name := fields[countryInfoISOIndex], fields[countryInfoNameIndex]
		if iso == "" || name == "" {
			continue
		}
		names[iso] = name
	}
	return names
}

func (m MapCountryNamer) CountryName(code string) (string, error) {
	if name, ok := m[code]; ok && name != "" {
		return name, nil
	}
	return "", fmt.Errorf("%w: %q", ErrCountryNotFound, code)
}
