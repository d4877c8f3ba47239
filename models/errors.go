package models

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns that are absent from the dataset.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// ParseError reports a value that could not be parsed into its column type.
// Row is the zero-based data row (the header is not counted).
type ParseError struct {
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse: row %d column %s: invalid value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
