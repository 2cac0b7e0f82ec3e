package citydb

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// AdminDivision represents a first-level administrative division (state, province, etc.)
type AdminDivision struct {
	Code string // Admin1 code (e.g., "TX", "07")
	Name string // Localized name (e.g., "Texas", "Victoria")
}

// AdminDivisionIndex maps country code -> admin1 code -> localized admin1 name.
// Built once per parse run and read-only afterwards.
type AdminDivisionIndex map[string]map[string]string

// Column layout of admin1CodesASCII.txt:
// CC.CODE<tab>Name<tab>AsciiName<tab>GeonameId
const (
	admin1NumberOfFields = 4
	admin1KeysIndex      = 0
	admin1NameIndex      = 1
	admin1NumberOfKeys   = 2
)

// BuildAdminIndex parses the admin1 file contents into an index. Malformed
// lines are logged and skipped; a later line with the same key overwrites an
// earlier one.
func BuildAdminIndex(contents string, opts ...Option) AdminDivisionIndex {
	return buildAdminIndex(contents, NewConfig(opts...))
}

func buildAdminIndex(contents string, cfg *Config) AdminDivisionIndex {
	index := make(AdminDivisionIndex)
	if contents == "" {
		return index
	}

	for n, line := range numberedLines(contents, cfg.LineSeparator) {
		if line == "" {
			continue
		}
		countryCode, admin1Code, name, err := parseAdmin1Fields(SplitFields(line, cfg.FieldSeparator), cfg.KeySeparator)
		if err != nil {
			err.Line = n
			err.Raw = line
			logLineError(cfg.Logger, "admin1", err)
			continue
		}
		index.set(countryCode, admin1Code, name)
	}
	return index
}

// parseAdmin1Fields validates a single split admin1 line.
func parseAdmin1Fields(fields []string, keySep string) (countryCode, admin1Code, name string, err *LineError) {
	if len(fields) != admin1NumberOfFields {
		return "", "", "", &LineError{Kind: WrongFieldCount}
	}

	keys := strings.Split(fields[admin1KeysIndex], keySep)
	if len(keys) != admin1NumberOfKeys {
		return "", "", "", &LineError{Kind: MalformedCompositeKey, Field: "key"}
	}

	countryCode, admin1Code, name = keys[0], keys[1], fields[admin1NameIndex]
	switch {
	case countryCode == "":
		return "", "", "", &LineError{Kind: EmptyRequiredField, Field: "country code"}
	case admin1Code == "":
		return "", "", "", &LineError{Kind: EmptyRequiredField, Field: "admin1 code"}
	case name == "":
		return "", "", "", &LineError{Kind: EmptyRequiredField, Field: "admin1 name"}
	}
	return countryCode, admin1Code, name, nil
}

func (idx AdminDivisionIndex) set(countryCode, admin1Code, name string) {
	if idx[countryCode] == nil {
		idx[countryCode] = make(map[string]string)
	}
	idx[countryCode][admin1Code] = name
}

// Name returns the localized admin1 name for a country and admin1 code.
func (idx AdminDivisionIndex) Name(countryCode, admin1Code string) (string, bool) {
	name, ok := idx[countryCode][admin1Code]
	return name, ok && name != ""
}

// Divisions returns the admin divisions of a country sorted by code.
func (idx AdminDivisionIndex) Divisions(countryCode string) []AdminDivision {
	divisions := make([]AdminDivision, 0, len(idx[countryCode]))
	for code, name := range idx[countryCode] {
		divisions = append(divisions, AdminDivision{Code: code, Name: name})
	}
	sort.Slice(divisions, func(i, j int) bool { return divisions[i].Code < divisions[j].Code })
	return divisions
}

// Len returns the total number of admin divisions across all countries.
func (idx AdminDivisionIndex) Len() int {
	n := 0
	for _, divisions := range idx {
		n += len(divisions)
	}
	return n
}

func logLineError(l logrus.FieldLogger, file string, err *LineError) {
	entry := l.WithFields(logrus.Fields{
		"file": file,
		"kind": err.Kind.String(),
		"line": err.Line,
		"raw":  err.Raw,
	})
	if err.Field != "" {
		entry = entry.WithField("field", err.Field)
	}
	entry.Warn("skipping line")
}
