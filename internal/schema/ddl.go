package schema

import (
	"fmt"
	"strings"
)

// Dialect captures the per-database differences needed to render DDL and
// qualified names. Backends construct one and hand it to the shared renderers.
type Dialect struct {
	Name string

	// Quote quotes one identifier segment.
	Quote func(string) string

	// Types maps each Kind to its SQL type.
	Types map[Kind]string

	// Identity is the full column type of a database-generated key.
	Identity string

	// IdentityIsKey means Identity already declares the primary key, so no
	// separate PRIMARY KEY clause is rendered for it.
	IdentityIsKey bool

	// Wrap turns a CREATE TABLE statement into an idempotent one for dialects
	// lacking IF NOT EXISTS. qualified is the quoted table name.
	Wrap func(qualified, create string) string
}

// DoubleQuote quotes id with double quotes (Postgres, SQLite).
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// BracketQuote quotes id with brackets (SQL Server).
func BracketQuote(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

// BacktickQuote quotes id with backticks (MySQL).
func BacktickQuote(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// Qualify quotes name, prefixed by namespace when one is set.
func (d Dialect) Qualify(namespace, name string) string {
	if namespace == "" {
		return d.Quote(name)
	}
	return d.Quote(namespace) + "." + d.Quote(name)
}

// Idents quotes each column name.
func (d Dialect) Idents(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.Quote(c)
	}
	return out
}

// CreateTableSQL renders a CREATE TABLE for t inside namespace.
//
// Key columns are always NOT NULL. Foreign keys reference tables of the same
// namespace and cascade on delete so that refreshing a dimension clears the
// facts that point at it.
func (d Dialect) CreateTableSQL(namespace string, t Table) (string, error) {
	if strings.TrimSpace(t.Name) == "" {
		return "", fmt.Errorf("%s ddl: table name must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: table %s has no columns", d.Name, t.Name)
	}

	key := make(map[string]bool, len(t.Key))
	for _, k := range t.Key {
		key[k] = true
	}

	defs := make([]string, 0, len(t.Columns)+len(t.ForeignKeys)+1)
	inlineKey := false
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, t.Name)
		}
		var sb strings.Builder
		sb.WriteString(d.Quote(c.Name))
		sb.WriteByte(' ')
		if c.Identity {
			if d.Identity == "" {
				return "", fmt.Errorf("%s ddl: identity columns are not supported", d.Name)
			}
			sb.WriteString(d.Identity)
			if d.IdentityIsKey {
				inlineKey = true
			}
		} else {
			typ, ok := d.Types[c.Kind]
			if !ok {
				return "", fmt.Errorf("%s ddl: no SQL type for column %s.%s", d.Name, t.Name, c.Name)
			}
			sb.WriteString(typ)
			if !c.Nullable || key[c.Name] {
				sb.WriteString(" NOT NULL")
			}
		}
		defs = append(defs, sb.String())
	}

	if len(t.Key) > 0 && !inlineKey {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(d.Idents(t.Key), ", ")))
	}
	for _, fk := range t.ForeignKeys {
		defs = append(defs, fmt.Sprintf(
			"FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE CASCADE",
			d.Quote(fk.Column), d.Qualify(namespace, fk.RefTable), d.Quote(fk.RefColumn),
		))
	}

	qualified := d.Qualify(namespace, t.Name)
	if d.Wrap != nil {
		create := fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", qualified, strings.Join(defs, ",\n  "))
		return d.Wrap(qualified, create), nil
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		qualified,
		strings.Join(defs, ",\n  "),
	), nil
}
