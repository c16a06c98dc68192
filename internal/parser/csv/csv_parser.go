// Package csv reads delimited text into a records.Table. Every value is kept
// as text; empty cells become nil so downstream stages can tell absent from
// present.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"olistdw/internal/records"
)

// ErrEmptyInput is returned when the input has no header row at all.
var ErrEmptyInput = errors.New("empty input: no header row")

// ErrTooManyFields is returned when a body row is wider than the header.
var ErrTooManyFields = errors.New("too many fields")

// Parser parses comma-separated input with a header row.
type Parser struct{}

// NewParser constructs a Parser.
func NewParser() *Parser { return &Parser{} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Parse consumes CSV records from r and returns them as a table named name,
// together with the number of short rows that were padded with nil. A row
// wider than the header or one the reader cannot parse fails the whole input.
func (p *Parser) Parse(name string, r io.Reader) (*records.Table, int, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	// Width is checked below: short rows are padded, long rows are an error.
	cr.FieldsPerRecord = -1

	h, err := cr.Read()
	if err == io.EOF {
		return nil, 0, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s: read csv header: %w", name, err)
	}
	headers := normalizeHeaders(h)

	t := &records.Table{Name: name, Columns: headers}
	var padded int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, padded, fmt.Errorf("%s: %w", name, err)
		}
		if len(row) > len(headers) {
			line, _ := cr.FieldPos(0)
			return nil, padded, fmt.Errorf("%s: line %d: %w (expected %d, got %d)", name, line, ErrTooManyFields, len(headers), len(row))
		}
		if len(row) < len(headers) {
			padded++
		}

		rec := make(records.Record, len(headers))
		for i, col := range headers {
			if i < len(row) {
				rec[col] = emptyToNil(row[i])
			} else {
				rec[col] = nil
			}
		}
		t.Rows = append(t.Rows, rec)
	}

	if padded > 0 {
		log.Printf("csv: file=%s rows=%d padded=%d", name, len(t.Rows), padded)
	}
	return t, padded, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders produces canonical header keys and strips a UTF-8 BOM from
// the first cell if present.
func normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		res[i] = NormalizeHeader(c)
	}
	return res
}

// NormalizeHeader lowercases s, strips diacritics and collapses any run of
// separators into a single underscore: "Customer  Zip-Code" -> "customer_zip_code".
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	// Decompose, remove nonspacing marks, recompose.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(t, s)
	if err != nil {
		ascii = s
	}

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
