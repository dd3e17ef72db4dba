package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Backend types a connection descriptor can resolve to.
const (
	BackendMotherDuck = "motherduck"
	BackendDuckDB     = "duckdb"
	BackendPostgres   = "postgres"
	BackendSQLServer  = "sqlserver"
)

// ConnectionDescriptor is the credential pair a user supplies before any query
// can run. Identifier is a plain MotherDuck database name or a URI; Token is a
// bearer credential attached out of band by the backend adapter.
//
// The descriptor lives only in transient session state and is never persisted.
type ConnectionDescriptor struct {
	Identifier string `json:"database"`
	Token      string `json:"-"`
}

// HasToken reports whether a token was supplied.
func (d ConnectionDescriptor) HasToken() bool {
	return d.Token != ""
}

// String renders the descriptor for logs without the token.
func (d ConnectionDescriptor) String() string {
	tokenState := "none"
	if d.HasToken() {
		tokenState = "set"
	}
	return fmt.Sprintf("%s (token: %s)", d.Identifier, tokenState)
}

// Fingerprint identifies a descriptor without exposing the token. Two
// descriptors with equal fingerprints open equivalent sessions.
func (d ConnectionDescriptor) Fingerprint() string {
	sum := sha256.Sum256([]byte(d.Identifier + "\x00" + d.Token))
	return hex.EncodeToString(sum[:])
}
