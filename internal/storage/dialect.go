package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the SQL flavour of the repository.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// IsValid returns true if the dialect is supported
func (d Dialect) IsValid() bool {
	return d == SQLite || d == Postgres
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table returns the qualified table name used in generated statements.
func (d Dialect) Table(name string) string {
	if d == Postgres {
		return "public." + name
	}
	return name
}

// UUIDExpr is an SQL expression producing a random uuid.
func (d Dialect) UUIDExpr() string {
	if d == Postgres {
		return "gen_random_uuid()"
	}
	return "lower(hex(randomblob(4)) || '-' || hex(randomblob(2)) || '-4' || substr(hex(randomblob(2)), 2) || '-' || " +
		"substr('89ab', 1 + (abs(random()) % 4), 1) || substr(hex(randomblob(2)), 2) || '-' || hex(randomblob(6)))"
}

// ParseDialect maps a backend name to a dialect.
func ParseDialect(s string) (Dialect, error) {
	d := Dialect(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("unsupported SQL dialect %q", s)
	}
	return d, nil
}
