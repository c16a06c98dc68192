// Package parser defines the contract shared by tabular input parsers.
package parser

import (
	"io"

	"olistdw/internal/records"
)

// Parser reads one tabular input into a records.Table. The returned int is
// the number of short body rows that were padded with nil. Any other
// malformed row is an error.
type Parser interface {
	Parse(name string, r io.Reader) (*records.Table, int, error)
}
