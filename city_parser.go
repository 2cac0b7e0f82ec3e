package citydb

import (
	"errors"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Column layout of the geonames cities export (citiesNNNN.txt).
const (
	citiesNumberOfFields = 19

	citiesNameIndex           = 1
	citiesASCIINameIndex      = 2
	citiesAlternateNamesIndex = 3
	citiesLatitudeIndex       = 4
	citiesLongitudeIndex      = 5
	citiesCountryCodeIndex    = 8
	citiesAdmin1CodeIndex     = 10
	citiesAdmin2CodeIndex     = 11
	citiesPopulationIndex     = 14
	citiesTimeZoneIndex       = 17
)

// CityParser turns split city lines into City values, resolving country and
// admin1 names. It holds the admin index by reference and never mutates it.
type CityParser struct {
	cfg   *Config
	index AdminDivisionIndex
}

// NewCityParser returns a parser resolving admin1 names from index.
func NewCityParser(index AdminDivisionIndex, opts ...Option) *CityParser {
	return newCityParser(index, NewConfig(opts...))
}

func newCityParser(index AdminDivisionIndex, cfg *Config) *CityParser {
	if index == nil {
		index = AdminDivisionIndex{}
	}
	return &CityParser{cfg: cfg, index: index}
}

// ParseLine splits a raw line and parses it.
func (p *CityParser) ParseLine(line string) (City, error) {
	return p.Parse(SplitFields(line, p.cfg.FieldSeparator))
}

// Parse validates fields and builds a City. The returned error is a
// *LineError. A missing admin1 name is not an error: it is logged and the
// city is returned with a null Admin1Name.
func (p *CityParser) Parse(fields []string) (City, error) {
	c, err := p.parse(fields)
	if err != nil {
		return City{}, err
	}
	return c, nil
}

func (p *CityParser) parse(fields []string) (City, *LineError) {
	if len(fields) != citiesNumberOfFields {
		return City{}, &LineError{Kind: UnexpectedFieldCount}
	}

	var c City
	var err *LineError
	if c.CountryCode, err = required(fields, citiesCountryCodeIndex, "country code"); err != nil {
		return City{}, err
	}
	if c.TimeZone, err = required(fields, citiesTimeZoneIndex, "time zone"); err != nil {
		return City{}, err
	}
	if c.Name, err = required(fields, citiesNameIndex, "name"); err != nil {
		return City{}, err
	}
	if p.cfg.Schema == SchemaLegacy {
		c.ASCIIName = fields[citiesASCIINameIndex]
	} else if c.ASCIIName, err = required(fields, citiesASCIINameIndex, "ascii name"); err != nil {
		return City{}, err
	}
	if c.Population, err = population(fields[citiesPopulationIndex]); err != nil {
		return City{}, err
	}
	if c.Latitude, err = degrees(fields[citiesLatitudeIndex], "latitude", 90); err != nil {
		return City{}, err
	}
	if c.Longitude, err = degrees(fields[citiesLongitudeIndex], "longitude", 180); err != nil {
		return City{}, err
	}

	name, nameErr := p.cfg.CountryNamer.CountryName(c.CountryCode)
	if nameErr != nil || name == "" {
		return City{}, &LineError{Kind: CountryCodeNotRecognised, Field: "country code", Err: nameErr}
	}
	c.CountryName = name

	c.AlternateNames = nullString(fields[citiesAlternateNamesIndex])
	c.Admin1Code = nullString(fields[citiesAdmin1CodeIndex])
	c.Admin2Code = nullString(fields[citiesAdmin2CodeIndex])

	log := p.cfg.Logger.WithFields(logrus.Fields{"city": c.Name, "country": c.CountryCode})
	if c.Admin1Code.Valid {
		if admin1Name, ok := p.index.Name(c.CountryCode, c.Admin1Code.String); ok {
			c.Admin1Name = nullString(admin1Name)
		} else {
			log.WithFields(logrus.Fields{
				"kind":   Admin1NameNotFound.String(),
				"admin1": c.Admin1Code.String,
			}).Warn("admin1 name not found")
		}
	} else {
		log.Debug("no admin1 code")
	}
	if !c.Admin2Code.Valid {
		log.Debug("no admin2 code")
	}
	return c, nil
}

func required(fields []string, i int, field string) (string, *LineError) {
	if fields[i] == "" {
		return "", &LineError{Kind: MissingRequiredField, Field: field}
	}
	return fields[i], nil
}

var errOutOfRange = errors.New("out of range")

func population(s string) (int64, *LineError) {
	if s == "" {
		return 0, &LineError{Kind: MissingRequiredField, Field: "population"}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, &LineError{Kind: MissingRequiredField, Field: "population", Err: err}
	}
	if n < 0 {
		return 0, &LineError{Kind: MissingRequiredField, Field: "population", Err: errOutOfRange}
	}
	return n, nil
}

func degrees(s, field string, limit float64) (float64, *LineError) {
	if s == "" {
		return 0, &LineError{Kind: MissingRequiredField, Field: field}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &LineError{Kind: MissingRequiredField, Field: field, Err: err}
	}
	if math.IsNaN(v) || v < -limit || v > limit {
		return 0, &LineError{Kind: MissingRequiredField, Field: field, Err: errOutOfRange}
	}
	return v, nil
}
