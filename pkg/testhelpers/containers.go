// Package testhelpers provides integration fixtures for listing-explorer tests.
package testhelpers

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the stock image the listings fixture is loaded into.
const PostgresImage = "postgres:16-alpine"

const (
	testUser     = "explorer"
	testPassword = "test_password"
	testDatabase = "listings"
)

// ListingsView is the qualified view the fixture creates.
const ListingsView = "casa.vw_listings"

// ListingsSchema creates a raw table with the original column names and
// loose types (text prices, like a scraped source) and a view over it.
const ListingsSchema = `
CREATE SCHEMA casa;

CREATE TABLE casa.listings_raw (
	name            TEXT,
	url             TEXT,
	description     TEXT,
	number_of_rooms TEXT,
	price_value_eur TEXT,
	size_mq         TEXT
);

INSERT INTO casa.listings_raw VALUES
	('Bilocale Foce',       'https://example.com/a', 'Near the sea, "quiet"', '2', '100000', '50'),
	('Trilocale Albaro',    'https://example.com/b', 'Bright, with balcony',  '3', '200000', '100'),
	('Quadrilocale Carignano', 'https://example.com/c', 'Top floor
with view',        '4', '400000', '0');

CREATE VIEW casa.vw_listings AS
	SELECT name, url, description,
	       number_of_rooms::double precision AS number_of_rooms,
	       price_value_eur::double precision AS price_value_eur,
	       size_mq::double precision AS size_mq
	FROM casa.listings_raw;

CREATE VIEW casa.vw_empty AS
	SELECT * FROM casa.vw_listings WHERE false;
`

// TestDB holds a shared PostgreSQL container seeded with listings.
type TestDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	ConnStr   string // includes the password
	URI       string // no password; pass testPassword as the token
}

// Password returns the fixture password, used as the connection token.
func (db *TestDB) Password() string {
	return testPassword
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       testDatabase,
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
		},
		// The entrypoint restarts postgres once after init scripts
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	uri := fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=disable", testUser, host, port.Port(), testDatabase)
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testUser, url.QueryEscape(testPassword), host, port.Port(), testDatabase)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err = pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("test database not reachable: %w", err)
	}

	if _, err := pool.Exec(ctx, ListingsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to load listings fixture: %w", err)
	}

	return &TestDB{
		Container: container,
		Pool:      pool,
		ConnStr:   connStr,
		URI:       uri,
	}, nil
}
