package expr

import (
	"errors"
	"fmt"
)

// ErrUnparsable marks text that the parser does not recognise.
var ErrUnparsable = errors.New("unparsable expression")

// ParseError describes why a fragment was not recognised. It matches
// ErrUnparsable with errors.Is.
type ParseError struct {
	Message  string
	Pos      int    // byte offset in Fragment, -1 when unknown
	Fragment string // the text being parsed
}

func (e *ParseError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("col %d: %s in %q", e.Pos+1, e.Message, e.Fragment)
	}
	return fmt.Sprintf("%s in %q", e.Message, e.Fragment)
}

// Unwrap lets errors.Is match ErrUnparsable.
func (e *ParseError) Unwrap() error { return ErrUnparsable }

func newParseError(fragment string, pos int, msg string) *ParseError {
	return &ParseError{Message: msg, Pos: pos, Fragment: fragment}
}

func newParseErrorf(fragment string, pos int, format string, args ...any) *ParseError {
	return &ParseError{Message: fmt.Sprintf(format, args...), Pos: pos, Fragment: fragment}
}
