package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// typeNames resolves result column OIDs to type names.
var typeNames = pgtype.NewMap()

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	pool *pgxpool.Pool
}

// Open connects to the database named by target.URI and verifies it is
// reachable before returning.
func Open(ctx context.Context, target datasource.Target, token string) (datasource.Session, error) {
	poolConfig, err := ParseConfig(target.URI, token)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	return &Adapter{pool: pool}, nil
}

// Query runs a statement with $n parameters. pgx handles parameterized
// queries natively.
func (a *Adapter) Query(ctx context.Context, sqlQuery string, params []any) (*datasource.QueryResult, error) {
	rows, err := a.pool.Query(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = datasource.ColumnInfo{
			Name: fd.Name,
			Type: typeName(fd.DataTypeOID),
		}
	}

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			rowMap[col.Name] = values[i]
		}
		resultRows = append(resultRows, rowMap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &datasource.QueryResult{
		Columns:  columns,
		Rows:     resultRows,
		RowCount: len(resultRows),
	}, nil
}

func typeName(oid uint32) string {
	if t, ok := typeNames.TypeForOID(oid); ok {
		return strings.ToUpper(t.Name)
	}
	return "UNKNOWN"
}

func (a *Adapter) Dialect() sqlbuild.Dialect { return sqlbuild.Postgres }

func (a *Adapter) Backend() string { return models.BackendPostgres }

func (a *Adapter) Ping(ctx context.Context) error {
	return a.pool.Ping(ctx)
}

func (a *Adapter) Close() error {
	a.pool.Close()
	return nil
}

var _ datasource.Session = (*Adapter)(nil)
