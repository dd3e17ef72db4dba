package duckdb

import (
	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.BackendMotherDuck,
			DisplayName: "MotherDuck",
			Description: "Hosted DuckDB databases addressed by name or md: URI",
			Schemes:     []string{datasource.SchemeMotherDuck},
		},
		Open: Open,
	})

	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.BackendDuckDB,
			DisplayName: "DuckDB",
			Description: "Local DuckDB database file, opened read-only, or an in-memory database",
			Schemes:     []string{datasource.SchemeDuckDB},
		},
		Open: Open,
	})
}
