package mssql

import (
	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.BackendSQLServer,
			DisplayName: "Microsoft SQL Server",
			Description: "Listings views in SQL Server 2019+, Azure SQL Database",
			Schemes:     []string{datasource.SchemeSQLServer},
		},
		Open: Open,
	})
}
