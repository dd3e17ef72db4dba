package postgres

import (
	"fmt"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/listing-explorer/pkg/config"
)

// DefaultSSLMode is applied when the URI does not name one.
const DefaultSSLMode = "require"

// MaxConns bounds the pool; a session issues one query at a time.
const MaxConns = 2

// ParseConfig builds a pool config from a postgres:// or postgresql:// URI.
// The token, when set, is used as the connection password and replaces any
// password embedded in the URI. Every transaction is started read-only.
//
// When running in Docker, localhost is resolved to host.docker.internal so
// databases on the host machine stay reachable.
func ParseConfig(uri, token string) (*pgxpool.Config, error) {
	u, err := url.Parse(uri)
	if err != nil {
		// url.Error echoes the input, which may carry a password
		return nil, fmt.Errorf("invalid postgres connection URI")
	}

	config.ResolveURLForDocker(u)

	query := u.Query()
	if query.Get("sslmode") == "" {
		query.Set("sslmode", DefaultSSLMode)
		u.RawQuery = query.Encode()
	}

	poolConfig, err := pgxpool.ParseConfig(u.String())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	if token != "" {
		poolConfig.ConnConfig.Password = token
	}
	poolConfig.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "listing-explorer"
	poolConfig.MaxConns = MaxConns

	return poolConfig, nil
}
