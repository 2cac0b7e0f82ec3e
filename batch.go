package citydb

// Report summarises a batch parse.
type Report struct {
	Lines      int               // lines read, including blank ones
	Blank      int               // zero-length lines, skipped silently
	Parsed     int               // cities in the result
	Duplicates int               // cities dropped as equal to an earlier one
	Skipped    map[ErrorKind]int // rejected lines by kind
	Warnings   map[ErrorKind]int // soft conditions by kind
}

// SkippedTotal returns the number of rejected lines.
func (r Report) SkippedTotal() int {
	n := 0
	for _, v := range r.Skipped {
		n += v
	}
	return n
}

// ParseCities parses the cities file contents against index. Failed lines are
// logged and skipped; the result keeps input order with no gaps.
func ParseCities(contents string, index AdminDivisionIndex, opts ...Option) []City {
	cities, _ := ParseCitiesReport(contents, index, opts...)
	return cities
}

// ParseCitiesReport is ParseCities with a summary of what was skipped.
func ParseCitiesReport(contents string, index AdminDivisionIndex, opts ...Option) ([]City, Report) {
	return parseCities(contents, newCityParser(index, NewConfig(opts...)))
}

func parseCities(contents string, p *CityParser) ([]City, Report) {
	report := Report{
		Skipped:  make(map[ErrorKind]int),
		Warnings: make(map[ErrorKind]int),
	}
	cities := []City{}
	if contents == "" {
		return cities, report
	}

	var seen map[City]struct{}
	if p.cfg.Deduplicate {
		seen = make(map[City]struct{})
	}

	for n, line := range numberedLines(contents, p.cfg.LineSeparator) {
		report.Lines++
		if line == "" {
			report.Blank++
			continue
		}

		c, err := p.parse(SplitFields(line, p.cfg.FieldSeparator))
		if err != nil {
			err.Line = n
			err.Raw = line
			report.Skipped[err.Kind]++
			logLineError(p.cfg.Logger, "cities", err)
			continue
		}
		if c.Admin1Code.Valid && !c.Admin1Name.Valid {
			report.Warnings[Admin1NameNotFound]++
		}

		if seen != nil {
			if _, dup := seen[c]; dup {
				report.Duplicates++
				p.cfg.Logger.WithField("line", n).WithField("city", c.Name).Debug("dropping duplicate city")
				continue
			}
			seen[c] = struct{}{}
		}
		cities = append(cities, c)
	}
	report.Parsed = len(cities)
	return cities, report
}
