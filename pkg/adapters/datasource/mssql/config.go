package mssql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/listing-explorer/pkg/config"
)

// DefaultConnectionTimeout is the dial timeout in seconds when the URI sets none.
const DefaultConnectionTimeout = 30

// BuildDSN normalizes a sqlserver:// URI for the driver. With a token the
// session authenticates through an access-token connector, so any password
// in the URI is dropped. Connections declare a read-only intent.
func BuildDSN(uri, token string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid sqlserver connection URI")
	}
	if u.Host == "" {
		return "", fmt.Errorf("sqlserver connection URI requires a host")
	}

	config.ResolveURLForDocker(u)

	if token != "" && u.User != nil {
		if name := u.User.Username(); name != "" {
			u.User = url.User(name)
		} else {
			u.User = nil
		}
	}

	query := u.Query()
	query.Set("ApplicationIntent", "ReadOnly")
	if query.Get("app name") == "" {
		query.Set("app name", "listing-explorer")
	}
	if query.Get("connection timeout") == "" {
		query.Set("connection timeout", strconv.Itoa(DefaultConnectionTimeout))
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
