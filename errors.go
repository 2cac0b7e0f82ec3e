package citydb

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a per-line parse failure.
type ErrorKind int

const (
	// Admin1 file kinds.
	WrongFieldCount ErrorKind = iota + 1
	MalformedCompositeKey
	EmptyRequiredField

	// Cities file kinds.
	UnexpectedFieldCount
	MissingRequiredField
	CountryCodeNotRecognised

	// Admin1NameNotFound is a soft condition: the city is still produced.
	Admin1NameNotFound
)

var errorKindNames = map[ErrorKind]string{
	WrongFieldCount:          "WrongFieldCount",
	MalformedCompositeKey:    "MalformedCompositeKey",
	EmptyRequiredField:       "EmptyRequiredField",
	UnexpectedFieldCount:     "UnexpectedFieldCount",
	MissingRequiredField:     "MissingRequiredField",
	CountryCodeNotRecognised: "CountryCodeNotRecognised",
	Admin1NameNotFound:       "Admin1NameNotFound",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error makes a kind usable as a sentinel with errors.Is.
func (k ErrorKind) Error() string {
	return k.String()
}

// Sentinels for errors.Is matching against a *LineError.
var (
	ErrWrongFieldCount          error = WrongFieldCount
	ErrMalformedCompositeKey    error = MalformedCompositeKey
	ErrEmptyRequiredField       error = EmptyRequiredField
	ErrUnexpectedFieldCount     error = UnexpectedFieldCount
	ErrMissingRequiredField     error = MissingRequiredField
	ErrCountryCodeNotRecognised error = CountryCodeNotRecognised
	ErrAdmin1NameNotFound       error = Admin1NameNotFound
)

// LineError describes why a single line was rejected. Line-level errors never
// abort a batch; they are logged and the line is skipped.
type LineError struct {
	Kind  ErrorKind
	Line  int    // 1-based line number, 0 when parsing a detached record
	Field string // logical field name, when one field is at fault
	Raw   string // offending line content
	Err   error  // underlying parse error, if any
}

func (e *LineError) Error() string {
	msg := e.Kind.String()
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LineError) Unwrap() error { return e.Err }

// Is reports whether target is the ErrorKind of this error.
func (e *LineError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// File-level sentinels. These are fatal to the operation that requested the file.
var (
	ErrFileNotFound   = errors.New("file not found")
	ErrFileUnreadable = errors.New("file unreadable")
	ErrNotUTF8        = errors.New("file is not valid UTF-8 text")
)

// FileError reports a failure to obtain the raw contents of a named file.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// ErrInvalidBoundingBoxKey is returned when a bounding-box key cannot be decoded
// into a valid coordinate.
var ErrInvalidBoundingBoxKey = errors.New("invalid bounding box key")
