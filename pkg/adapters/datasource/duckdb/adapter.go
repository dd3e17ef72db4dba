// Package duckdb opens sessions against MotherDuck (md:) and local DuckDB
// files (duckdb:) through the go-duckdb driver.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/marcboeker/go-duckdb"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

const (
	// tokenOption is the DuckDB config option the MotherDuck extension reads.
	tokenOption      = "motherduck_token"
	accessModeOption = "access_mode"
)

// Adapter is a Session over a single DuckDB connection.
type Adapter struct {
	db      *sql.DB
	backend string
}

// Open opens a session for an md: or duckdb: target. For MotherDuck the token
// is merged into the driver options; it never appears in target.URI.
func Open(ctx context.Context, target datasource.Target, token string) (datasource.Session, error) {
	dsn, err := buildDSN(target, token)
	if err != nil {
		return nil, err
	}

	connector, err := duckdb.NewConnector(dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	db := sql.OpenDB(connector)

	// Session settings don't propagate across pooled connections; the
	// session runs one query at a time anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Adapter{db: db, backend: target.Backend}, nil
}

// buildDSN turns a normalized target into a go-duckdb DSN ("path?opt=value").
func buildDSN(target datasource.Target, token string) (string, error) {
	switch target.Backend {
	case models.BackendMotherDuck:
		path, options, err := splitOptions(target.URI)
		if err != nil {
			return "", err
		}
		// md: prefix is matched case-insensitively upstream; the extension
		// only recognizes lowercase.
		path = datasource.SchemeMotherDuck + path[len(datasource.SchemeMotherDuck):]
		if token != "" {
			options.Set(tokenOption, token)
		}
		return joinDSN(path, options), nil

	case models.BackendDuckDB:
		path, options, err := splitOptions(target.URI[len(datasource.SchemeDuckDB):])
		if err != nil {
			return "", err
		}
		if path != "" && path != ":memory:" && options.Get(accessModeOption) == "" {
			options.Set(accessModeOption, "read_only")
		}
		return joinDSN(path, options), nil

	default:
		return "", fmt.Errorf("duckdb adapter cannot open %q targets", target.Backend)
	}
}

func splitOptions(uri string) (string, url.Values, error) {
	path, rawQuery, _ := strings.Cut(uri, "?")
	options, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "", nil, fmt.Errorf("invalid connection options: %w", err)
	}
	return path, options, nil
}

func joinDSN(path string, options url.Values) string {
	if len(options) == 0 {
		return path
	}
	return path + "?" + options.Encode()
}

// Query runs a statement with positional "?" parameters.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, params []any) (*datasource.QueryResult, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.CollectSQLRows(rows)
}

func (a *Adapter) Dialect() sqlbuild.Dialect { return sqlbuild.DuckDB }

func (a *Adapter) Backend() string { return a.backend }

func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ datasource.Session = (*Adapter)(nil)
