package datasource

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// Identifier prefixes recognized by Normalize. Anything else is treated as a
// bare MotherDuck database name.
const (
	SchemeMotherDuck = "md:"
	SchemeDuckDB     = "duckdb:"
	SchemePostgres   = "postgres://"
	SchemePostgreSQL = "postgresql://"
	SchemeSQLServer  = "sqlserver://"
)

var schemeBackends = []struct {
	prefix  string
	backend string
}{
	{SchemeMotherDuck, models.BackendMotherDuck},
	{SchemeDuckDB, models.BackendDuckDB},
	{SchemePostgres, models.BackendPostgres},
	{SchemePostgreSQL, models.BackendPostgres},
	{SchemeSQLServer, models.BackendSQLServer},
}

// Target is a normalized connection identifier.
type Target struct {
	Backend string // adapter type, e.g. models.BackendMotherDuck
	URI     string // canonical identifier, e.g. "md:test_cso_g"; never contains the token
}

// Normalize trims the identifier and maps it to a backend. A bare name such
// as "test_cso_g" becomes "md:test_cso_g"; recognized prefixes are kept
// verbatim. Empty identifiers and bare names that look like SQL injection
// are rejected with a ConnectionError.
func Normalize(identifier string) (Target, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return Target{}, apperrors.NewConnectionError("",
			fmt.Errorf("%w: a database name is required", apperrors.ErrInvalidIdentifier))
	}

	lower := strings.ToLower(id)
	for _, s := range schemeBackends {
		if strings.HasPrefix(lower, s.prefix) {
			if s.backend == models.BackendMotherDuck {
				if err := checkDatabaseName(motherDuckName(id)); err != nil {
					return Target{}, err
				}
			}
			return Target{Backend: s.backend, URI: id}, nil
		}
	}

	if err := checkDatabaseName(id); err != nil {
		return Target{}, err
	}
	return Target{Backend: models.BackendMotherDuck, URI: SchemeMotherDuck + id}, nil
}

// motherDuckName extracts the database part of "md:name?options".
func motherDuckName(uri string) string {
	name := uri[len(SchemeMotherDuck):]
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	return name
}

func checkDatabaseName(name string) error {
	if name == "" {
		return nil
	}
	if err := sqlbuild.CheckIdentifier("database", name); err != nil {
		return apperrors.NewConnectionError(models.BackendMotherDuck,
			fmt.Errorf("%w: %w", apperrors.ErrInvalidIdentifier, err))
	}
	return nil
}
