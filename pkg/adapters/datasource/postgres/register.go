package postgres

import (
	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.BackendPostgres,
			DisplayName: "PostgreSQL",
			Description: "Listings views in PostgreSQL 12+, Aurora PostgreSQL, Supabase",
			Schemes:     []string{datasource.SchemePostgres, datasource.SchemePostgreSQL},
		},
		Open: Open,
	})
}
