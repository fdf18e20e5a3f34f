package tsv

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrFormat matches every *FormatError with errors.Is.
	ErrFormat = errors.New("tsv: record format error")

	// ErrClosed is returned by operations on a closed Reader or Writer.
	ErrClosed = errors.New("tsv: already closed")

	// ErrDateRange is the cause of a FormatError for a date or datetime
	// outside 0001-01-01..9999-12-31.
	ErrDateRange = errors.New("date out of range")

	errMalformedInput = errors.New("malformed input")
)

// FormatError reports a violation of the record grammar. The stream cannot
// be read or written further once one is returned.
type FormatError struct {
	Record int64 // 1-based record number, 0 before the first record
	Cell   int   // 0-based cell index within the record
	Offset int64 // byte offset in the UTF-8 stream
	State  State // cursor state when the violation was found
	Msg    string
	Err    error // underlying decode or encode failure, if any
}

func (e *FormatError) Error() string {
	msg := fmt.Sprintf("tsv: record %d cell %d (offset %d): %s", e.Record, e.Cell, e.Offset, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// describe quotes a lookahead value for error messages.
func describe(c int) string {
	if c == eof {
		return "end of stream"
	}
	return strconv.QuoteRune(rune(c))
}
