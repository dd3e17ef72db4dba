// Package sql builds the read-only statements issued against a listings view.
package sql

import (
	"fmt"
	"strings"
)

// Dialect captures the syntax differences between the supported backends.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string
	// Placeholder returns the bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string
	// QuoteIdentifier quotes a single identifier part.
	QuoteIdentifier(name string) string
	// NumericCast coerces expr to a floating point number, yielding NULL for
	// values that cannot be converted where the backend allows it.
	NumericCast(expr string) string
	// Paginate returns the clause appended after ORDER BY. limit <= 0 means
	// no limit; an empty string is returned when neither applies.
	Paginate(limit, offset int) string
}

// DuckDB is the dialect for local DuckDB files and MotherDuck.
var DuckDB Dialect = duckDBDialect{}

// Postgres is the dialect for PostgreSQL.
var Postgres Dialect = postgresDialect{}

// SQLServer is the dialect for Microsoft SQL Server and Azure SQL.
var SQLServer Dialect = sqlServerDialect{}

type duckDBDialect struct{}

func (duckDBDialect) Name() string { return "duckdb" }
func (duckDBDialect) Placeholder(int) string { return "?" }
func (duckDBDialect) QuoteIdentifier(n string) string {
	return doubleQuote(n)
}
func (duckDBDialect) NumericCast(expr string) string {
	return fmt.Sprintf("TRY_CAST(%s AS DOUBLE)", expr)
}
func (duckDBDialect) Paginate(limit, offset int) string {
	return limitOffset(limit, offset)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }
func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) QuoteIdentifier(n string) string {
	return doubleQuote(n)
}

// PostgreSQL has no TRY_CAST; views are expected to expose numeric columns.
func (postgresDialect) NumericCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS DOUBLE PRECISION)", expr)
}
func (postgresDialect) Paginate(limit, offset int) string {
	return limitOffset(limit, offset)
}

type sqlServerDialect struct{}

func (sqlServerDialect) Name() string { return "sqlserver" }
func (sqlServerDialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

// QuoteIdentifier uses bracket quoting, escaping ] as ]].
func (sqlServerDialect) QuoteIdentifier(n string) string {
	return "[" + strings.ReplaceAll(n, "]", "]]") + "]"
}
func (sqlServerDialect) NumericCast(expr string) string {
	return fmt.Sprintf("TRY_CAST(%s AS FLOAT)", expr)
}

// SQL Server requires OFFSET before FETCH, and both only after ORDER BY.
func (sqlServerDialect) Paginate(limit, offset int) string {
	if limit <= 0 && offset <= 0 {
		return ""
	}
	if offset < 0 {
		offset = 0
	}
	clause := fmt.Sprintf("OFFSET %d ROWS", offset)
	if limit > 0 {
		clause += fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit)
	}
	return clause
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func limitOffset(limit, offset int) string {
	var parts []string
	if limit > 0 {
		parts = append(parts, fmt.Sprintf("LIMIT %d", limit))
	}
	if offset > 0 {
		parts = append(parts, fmt.Sprintf("OFFSET %d", offset))
	}
	return strings.Join(parts, " ")
}
