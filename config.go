package citydb

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Schema selects which generation of the cities export is being parsed.
type Schema int

const (
	// SchemaCurrent requires the ASCII name column to be populated.
	SchemaCurrent Schema = iota
	// SchemaLegacy treats the ASCII name column as optional.
	SchemaLegacy
)

// DefaultBucketWidth is the edge length, in degrees, of a bounding-box cell.
const DefaultBucketWidth = 0.5

// Config holds the separators, schema policy and collaborators used by the
// parser components. Build one with DefaultConfig and Options.
type Config struct {
	LineSeparator  string // separates lines in both files (default "\n")
	FieldSeparator string // separates fields within a line (default "\t")
	KeySeparator   string // separates the admin1 composite key (default ".")

	BucketWidth float64 // bounding-box cell width in degrees (default 0.5)
	Schema      Schema
	Deduplicate bool // drop cities equal to an earlier one

	Logger       logrus.FieldLogger
	CountryNamer CountryNamer
}

// Option is a functional option for configuring parsing.
type Option func(*Config)

// WithSeparators overrides the line, field and composite-key separators.
// Empty values keep the current setting.
func WithSeparators(line, field, key string) Option {
	return func(c *Config) {
		if line != "" {
			c.LineSeparator = line
		}
		if field != "" {
			c.FieldSeparator = field
		}
		if key != "" {
			c.KeySeparator = key
		}
	}
}

// WithBucketWidth sets the bounding-box cell width in degrees.
// Non-positive or non-finite widths are ignored.
func WithBucketWidth(width float64) Option {
	return func(c *Config) {
		if validWidth(width) {
			c.BucketWidth = width
		}
	}
}

// WithSchema selects the cities file schema generation.
func WithSchema(s Schema) Option {
	return func(c *Config) {
		c.Schema = s
	}
}

// WithDeduplication toggles dropping of duplicate cities.
func WithDeduplication(on bool) Option {
	return func(c *Config) {
		c.Deduplicate = on
	}
}

// WithLogger sets the logger that receives per-line diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// WithCountryNamer sets the country display-name collaborator.
func WithCountryNamer(n CountryNamer) Option {
	return func(c *Config) {
		if n != nil {
			c.CountryNamer = n
		}
	}
}

// DefaultConfig returns the configuration for the current geonames export.
// CountryNamer is left unset; NewConfig fills in DefaultCountryNamer when no
// namer was supplied.
func DefaultConfig() *Config {
	return &Config{
		LineSeparator:  "\n",
		FieldSeparator: "\t",
		KeySeparator:   ".",
		BucketWidth:    DefaultBucketWidth,
		Schema:         SchemaCurrent,
		Deduplicate:    true,
		Logger:         logrus.StandardLogger(),
	}
}

// NewConfig applies opts over DefaultConfig.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.CountryNamer == nil {
		cfg.CountryNamer = DefaultCountryNamer()
	}
	return cfg
}

func validWidth(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
