package domain

import (
	"errors"
	"fmt"
)

// FetchErrorKind separates failures worth retrying on the normal cadence from
// failures that warrant backing off.
type FetchErrorKind int

const (
	Transient FetchErrorKind = iota
	Permanent
)

func (k FetchErrorKind) String() string {
	if k == Permanent {
		return "permanent"
	}
	return "transient"
}

// FetchError reports a failed upstream request.
type FetchError struct {
	Source     SourceID
	Kind       FetchErrorKind
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s (%s): status %d: %v", e.Source, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseLevel distinguishes recoverable row problems from an unusable payload.
type ParseLevel int

const (
	RowLevel ParseLevel = iota
	SchemaLevel
)

func (l ParseLevel) String() string {
	if l == SchemaLevel {
		return "schema"
	}
	return "row"
}

// ParseError reports a payload that could not be interpreted.
// Row is the 1-based line number for row-level errors.
type ParseError struct {
	Source SourceID
	Level  ParseLevel
	Row    int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Level == RowLevel {
		return fmt.Sprintf("parse %s: line %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("parse %s: %s: %v", e.Source, e.Level, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func schemaError(source SourceID, format string, args ...any) error {
	return &ParseError{Source: source, Level: SchemaLevel, Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err is a permanent fetch failure.
// Parse errors are always treated as transient: the next publication may be well formed.
func IsPermanent(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == Permanent
}

// ParseStats counts row-level problems skipped during one parse.
type ParseStats struct {
	Rows      int          `json:"rows"`
	RowErrors int          `json:"row_errors"`
	Errors    []ParseError `json:"-"`
}

func (s *ParseStats) skip(source SourceID, row int, err error) {
	s.RowErrors++
	s.Errors = append(s.Errors, ParseError{Source: source, Level: RowLevel, Row: row, Err: err})
}
