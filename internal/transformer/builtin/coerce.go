package builtin

import (
	"strconv"
	"strings"

	"olistdw/internal/records"
)

// Coerce converts textual values to typed ones. Supported types are "int"
// (int64) and "float" (float64). A value that does not parse becomes nil and
// is reported through OnInvalid.
type Coerce struct {
	Types map[string]string // field -> int or float

	OnInvalid func(field, raw string)
}

// Apply implements transformer.Transformer.
func (c Coerce) Apply(t *records.Table) *records.Table {
	if t == nil || len(c.Types) == 0 {
		return t
	}
	for _, r := range t.Rows {
		for field, typ := range c.Types {
			s, ok := r[field].(string)
			if !ok {
				continue
			}
			s = strings.TrimSpace(s)
			var (
				v   any
				err error
			)
			switch typ {
			case "int":
				v, err = parseInt(s)
			case "float":
				v, err = strconv.ParseFloat(s, 64)
			default:
				continue
			}
			if err != nil {
				r[field] = nil
				if c.OnInvalid != nil {
					c.OnInvalid(field, s)
				}
				continue
			}
			r[field] = v
		}
	}
	return t
}

// parseInt accepts integral floats such as "5.0", which spreadsheet exports
// produce for integer columns.
func parseInt(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, strconv.ErrSyntax
	}
	return int64(f), nil
}
