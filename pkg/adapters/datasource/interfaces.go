package datasource

import (
	"context"

	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// Session is an open, authenticated handle to one backend database.
// A Session runs one query at a time; callers serialize access (see
// SessionManager.Do). Each implementation owns its connection and must be
// closed when done.
type Session interface {
	// Query runs a single read-only statement with positional parameters
	// and returns every row in backend order.
	Query(ctx context.Context, sqlQuery string, params []any) (*QueryResult, error)

	// Dialect returns the SQL dialect statements must be rendered in.
	Dialect() sqlbuild.Dialect

	// Backend names the adapter that opened the session, e.g. "motherduck".
	Backend() string

	// Ping verifies the backend is still reachable.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close() error
}

// ColumnInfo describes a result column with database-agnostic type information.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"` // Database type name (e.g., "DOUBLE", "FLOAT8", "VARCHAR")
}

// QueryResult holds the results from executing a query.
type QueryResult struct {
	Columns  []ColumnInfo     `json:"columns"`
	Rows     []map[string]any `json:"rows"`
	RowCount int              `json:"row_count"`
}
