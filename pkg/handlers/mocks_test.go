package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource/duckdb"
	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/auth"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	"github.com/ekaya-inc/listing-explorer/pkg/services"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
	"github.com/ekaya-inc/listing-explorer/ui"
)

const testView = "casa.vw_listings"

var seedStatements = []string{
	`CREATE SCHEMA casa`,
	`CREATE TABLE casa.listings_raw (
		name VARCHAR, url VARCHAR, description VARCHAR,
		number_of_rooms VARCHAR, price_value_eur VARCHAR, size_mq VARCHAR)`,
	`INSERT INTO casa.listings_raw VALUES
		('Bilocale', 'https://example.com/a', 'Two rooms', '2', '100', '50'),
		('Trilocale', 'https://example.com/b', 'Three rooms, "bright"', '3', '200', '100'),
		('Monolocale', 'https://example.com/c', 'One room', '1', 'n/a', '40')`,
	`CREATE VIEW casa.vw_listings AS SELECT * FROM casa.listings_raw`,
}

// seededOpener opens a fresh in-memory DuckDB holding three listings for
// every Open. Identifiers go through the real normalization; a non-nil err
// is returned instead of opening.
type seededOpener struct {
	mu    sync.Mutex
	err   error
	opens []models.ConnectionDescriptor
}

func (o *seededOpener) Open(ctx context.Context, desc models.ConnectionDescriptor) (datasource.Session, error) {
	o.mu.Lock()
	o.opens = append(o.opens, desc)
	fail := o.err
	o.mu.Unlock()

	target, err := datasource.Normalize(desc.Identifier)
	if err != nil {
		return nil, err
	}
	if fail != nil {
		return nil, apperrors.NewConnectionError(target.Backend, fail)
	}

	session, err := duckdb.Open(ctx, datasource.Target{Backend: models.BackendDuckDB, URI: "duckdb:"}, "")
	if err != nil {
		return nil, err
	}
	for _, stmt := range seedStatements {
		if _, err := session.Query(ctx, stmt, nil); err != nil {
			_ = session.Close()
			return nil, err
		}
	}
	return session, nil
}

func (o *seededOpener) lastOpen() models.ConnectionDescriptor {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens[len(o.opens)-1]
}

type testServer struct {
	mux      *http.ServeMux
	opener   *seededOpener
	sessions *datasource.SessionManager
	cookies  map[string]*http.Cookie
	logs     *observer.ObservedLogs
}

// newTestServer wires the dashboard, export and API handlers the way main
// does, over a seeded opener.
func newTestServer(t *testing.T, defaults models.ConnectionDescriptor) *testServer {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, core)
	})))

	opener := &seededOpener{}
	sessions := datasource.NewSessionManager(datasource.SessionManagerConfig{
		TTLMinutes:      5,
		CleanupInterval: time.Hour,
	}, opener, logger)
	t.Cleanup(func() { _ = sessions.Close() })

	service, err := services.NewListingService(testView, sqlbuild.DefaultColumns(), logger)
	require.NoError(t, err)

	explorer := NewExplorer(service, sessions, auth.NewBrowserSessions("test-secret", auth.CookieSettings{}),
		ExplorerConfig{Defaults: defaults, PageSize: 2, MaxPageSize: 10}, logger)

	mux := http.NewServeMux()
	dashboard, err := NewDashboardHandler(explorer, ui.AssetsFS(), logger)
	require.NoError(t, err)
	dashboard.RegisterRoutes(mux)
	NewAPIHandler(explorer, logger).RegisterRoutes(mux)

	return &testServer{
		mux:      mux,
		opener:   opener,
		sessions: sessions,
		cookies:  make(map[string]*http.Cookie),
		logs:     logs,
	}
}

// do sends a request carrying the cookies collected so far, like a browser.
func (s *testServer) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(s.cookies, c.Name)
			continue
		}
		s.cookies[c.Name] = c
	}
	return rec
}

func (s *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	return s.do(t, http.MethodGet, target, "", "")
}

func (s *testServer) postJSON(t *testing.T, target, body string) *httptest.ResponseRecorder {
	return s.do(t, http.MethodPost, target, "application/json", body)
}

func (s *testServer) postForm(t *testing.T, target, body string) *httptest.ResponseRecorder {
	return s.do(t, http.MethodPost, target, "application/x-www-form-urlencoded", body)
}
