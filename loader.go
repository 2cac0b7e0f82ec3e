package citydb

import (
	"archive/zip"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// LoadFile returns the contents of a gazetteer file. Plain text, bzip2
// (".bz2") and zip (".zip", first ".txt" entry) files are accepted. All
// failures are returned as *FileError.
func LoadFile(path string) (string, error) {
	if path == "" {
		return "", &FileError{Name: path, Err: ErrFileNotFound}
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		data, err = readZip(path)
	case ".bz2":
		data, err = readBzip2(path)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", &FileError{Name: path, Err: classifyReadError(err)}
	}
	if !utf8.Valid(data) {
		return "", &FileError{Name: path, Err: ErrNotUTF8}
	}
	return string(data), nil
}

func classifyReadError(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrFileNotFound) {
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	return fmt.Errorf("%w: %v", ErrFileUnreadable, err)
}

func readZip(path string) ([]byte, error) {
	rz, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening zip file: %w", err)
	}
	defer rz.Close()

	for _, f := range rz.File {
		if strings.EqualFold(filepath.Ext(f.Name), ".txt") {
			return readZipEntry(f)
		}
	}
	return nil, fmt.Errorf("%w: no .txt entry in archive", ErrFileNotFound)
}

// readZipEntry reads a single entry; split out so the deferred Close runs per entry.
func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s in zip: %w", f.Name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readBzip2(path string) ([]byte, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return io.ReadAll(bzip2.NewReader(fh))
}

// ImportResult is the outcome of an import run.
type ImportResult struct {
	Cities []City
	Admin1 AdminDivisionIndex
	Report Report
}

// Importer loads an admin1 file and a cities file and parses them.
type Importer struct {
	CitiesPath string
	Admin1Path string
	cfg        *Config
}

// NewImporter returns an Importer for the two files.
func NewImporter(citiesPath, admin1Path string, opts ...Option) *Importer {
	return &Importer{
		CitiesPath: citiesPath,
		Admin1Path: admin1Path,
		cfg:        NewConfig(opts...),
	}
}

// Config returns the resolved configuration.
func (im *Importer) Config() *Config { return im.cfg }

// Import reads both files and parses them. Only file-level failures and
// cancellation are returned as errors.
func (im *Importer) Import(ctx context.Context) (*ImportResult, error) {
	admin1Contents, err := LoadFile(im.Admin1Path)
	if err != nil {
		return nil, fmt.Errorf("loading admin1 file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	citiesContents, err := LoadFile(im.CitiesPath)
	if err != nil {
		return nil, fmt.Errorf("loading cities file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := buildAdminIndex(admin1Contents, im.cfg)
	im.cfg.Logger.WithField("divisions", index.Len()).Info("admin1 index built")

	cities, report := parseCities(citiesContents, newCityParser(index, im.cfg))
	im.cfg.Logger.WithFields(logrus.Fields{
		"lines":      report.Lines,
		"parsed":     report.Parsed,
		"skipped":    report.SkippedTotal(),
		"duplicates": report.Duplicates,
	}).Info("cities parsed")

	return &ImportResult{Cities: cities, Admin1: index, Report: report}, nil
}

// Buckets groups the imported cities using the configured bucket width.
func (r *ImportResult) Buckets(width float64) *BucketIndex {
	return NewBucketIndex(r.Cities, width)
}
