package citydb

import (
	"iter"
	"strings"
)

// SplitFields splits a raw line into its fields. Splitting is total: an empty
// line yields a single empty field, and adjacent separators yield empty fields.
func SplitFields(line, sep string) []string {
	return strings.Split(line, sep)
}

// Lines returns the raw lines of contents separated by sep. The sequence is
// lazy and may be ranged over any number of times. A trailing separator
// produces a final zero-length line; callers reject it downstream.
func Lines(contents, sep string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if sep == "" {
			yield(contents)
			return
		}
		rest := contents
		for {
			i := strings.Index(rest, sep)
			if i < 0 {
				yield(rest)
				return
			}
			if !yield(rest[:i]) {
				return
			}
			rest = rest[i+len(sep):]
		}
	}
}

// numberedLines pairs each line with its 1-based position.
func numberedLines(contents, sep string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		n := 0
		for line := range Lines(contents, sep) {
			n++
			if !yield(n, line) {
				return
			}
		}
	}
}
