package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/andreiashu/citydb"
)

// settings mirrors the YAML config file. Flags override file values.
type settings struct {
	Cities         string  `yaml:"cities"`
	Admin1         string  `yaml:"admin1"`
	CountryInfo    string  `yaml:"country_info"`
	Database       string  `yaml:"database"`
	BucketWidth    float64 `yaml:"bucket_width"`
	LegacySchema   bool    `yaml:"legacy_schema"`
	KeepDuplicates bool    `yaml:"keep_duplicates"`
	LogLevel       string  `yaml:"log_level"`
	LogFormat      string  `yaml:"log_format"`
}

func defaultSettings() settings {
	return settings{
		Cities:      "cities5000.txt",
		Admin1:      "admin1CodesASCII.txt",
		Database:    "cities.sqlite",
		BucketWidth: citydb.DefaultBucketWidth,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// loadSettings reads a YAML config file over the defaults.
func loadSettings(path string) (settings, error) {
	s := defaultSettings()
	f, err := os.Open(path)
	if err != nil {
		return s, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return s, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return s, nil
}

// mergeSettings copies file values into s for every flag the user did not set.
func mergeSettings(s *settings, file settings, flags *pflag.FlagSet) {
	unset := func(name string) bool {
		f := flags.Lookup(name)
		return f == nil || !f.Changed
	}
	if unset("cities") {
		s.Cities = file.Cities
	}
	if unset("admin1") {
		s.Admin1 = file.Admin1
	}
	if unset("country-info") {
		s.CountryInfo = file.CountryInfo
	}
	if unset("db") {
		s.Database = file.Database
	}
	if unset("bucket-width") {
		s.BucketWidth = file.BucketWidth
	}
	if unset("legacy-schema") {
		s.LegacySchema = file.LegacySchema
	}
	if unset("keep-duplicates") {
		s.KeepDuplicates = file.KeepDuplicates
	}
	if unset("log-level") {
		s.LogLevel = file.LogLevel
	}
	if unset("log-format") {
		s.LogFormat = file.LogFormat
	}
}

func (s settings) logger() (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	lvl, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	l.SetLevel(lvl)
	switch strings.ToLower(s.LogFormat) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", s.LogFormat)
	}
	return l, nil
}

func (s settings) options(l logrus.FieldLogger) ([]citydb.Option, error) {
	schema := citydb.SchemaCurrent
	if s.LegacySchema {
		schema = citydb.SchemaLegacy
	}
	opts := []citydb.Option{
		citydb.WithLogger(l),
		citydb.WithBucketWidth(s.BucketWidth),
		citydb.WithSchema(schema),
		citydb.WithDeduplication(!s.KeepDuplicates),
	}
	if s.CountryInfo != "" {
		contents, err := citydb.LoadFile(s.CountryInfo)
		if err != nil {
			return nil, err
		}
		names := citydb.ParseCountryInfo(contents)
		l.WithField("countries", len(names)).Debug("loaded country names")
		opts = append(opts, citydb.WithCountryNamer(names))
	}
	return opts, nil
}
