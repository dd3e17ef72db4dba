package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// Adapter provides SQL Server connectivity. Authentication is either the
// user/password in the URI (SQL auth) or an Azure AD access token.
type Adapter struct {
	db *sql.DB
}

// Open connects to the server named by target.URI and tests the connection
// immediately.
func Open(ctx context.Context, target datasource.Target, token string) (datasource.Session, error) {
	dsn, err := BuildDSN(target.URI, token)
	if err != nil {
		return nil, err
	}

	db, err := openDB(dsn, token)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection test failed: %w", err)
	}

	return &Adapter{db: db}, nil
}

func openDB(dsn, token string) (*sql.DB, error) {
	if token == "" {
		db, err := sql.Open("sqlserver", dsn)
		if err != nil {
			return nil, fmt.Errorf("open SQL auth connection: %w", err)
		}
		return db, nil
	}

	connector, err := mssql.NewAccessTokenConnector(dsn, func() (string, error) {
		return token, nil
	})
	if err != nil {
		return nil, fmt.Errorf("open access token connection: %w", err)
	}
	return sql.OpenDB(connector), nil
}

// Query runs a statement with @pN parameters, bound as sql.Named values.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, params []any) (*datasource.QueryResult, error) {
	rows, err := a.db.QueryContext(ctx, sqlQuery, namedParams(params)...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return datasource.CollectSQLRows(rows)
}

func namedParams(params []any) []any {
	named := make([]any, len(params))
	for i, param := range params {
		named[i] = sql.Named(fmt.Sprintf("p%d", i+1), param)
	}
	return named
}

func (a *Adapter) Dialect() sqlbuild.Dialect { return sqlbuild.SQLServer }

func (a *Adapter) Backend() string { return models.BackendSQLServer }

func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

var _ datasource.Session = (*Adapter)(nil)
