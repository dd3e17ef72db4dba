package handlers

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/audit"
	"github.com/ekaya-inc/listing-explorer/pkg/auth"
	"github.com/ekaya-inc/listing-explorer/pkg/logging"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	"github.com/ekaya-inc/listing-explorer/pkg/services"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// ExplorerConfig holds the defaults applied to every browser session.
type ExplorerConfig struct {
	// Defaults fills an empty database or token on connect.
	Defaults    models.ConnectionDescriptor
	PageSize    int
	MaxPageSize int
}

// Explorer binds browser sessions to backend sessions and runs the listing
// queries on them. The dashboard, the export and the JSON API share one.
type Explorer struct {
	service  services.ListingService
	sessions *datasource.SessionManager
	browser  *auth.BrowserSessions
	cfg      ExplorerConfig
	facts    sync.Map // browser session id -> *sessionFacts
	auditor  *audit.SecurityAuditor
	logger   *zap.Logger
}

// sessionFacts are computed once per backend session over the unfiltered view.
type sessionFacts struct {
	connectedAt time.Time
	bounds      *models.Bounds
	market      *models.AggregateSummary
}

// Page is one filtered view of the listings.
type Page struct {
	Bounds  *models.Bounds           `json:"bounds"`
	Market  *models.AggregateSummary `json:"market"`
	Summary *models.AggregateSummary `json:"summary"`
	Rows    []models.Listing         `json:"rows"`
	Limit   int                      `json:"limit"`
	Offset  int                      `json:"offset"`
	Warning string                   `json:"warning,omitempty"`
}

// NewExplorer creates an Explorer.
func NewExplorer(service services.ListingService, sessions *datasource.SessionManager, browser *auth.BrowserSessions, cfg ExplorerConfig, logger *zap.Logger) *Explorer {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.MaxPageSize < cfg.PageSize {
		cfg.MaxPageSize = cfg.PageSize
	}
	return &Explorer{
		service:  service,
		sessions: sessions,
		browser:  browser,
		cfg:      cfg,
		auditor:  audit.NewSecurityAuditor(logger),
		logger:   logger.Named("explorer"),
	}
}

// Browser returns the browser session store.
func (e *Explorer) Browser() *auth.BrowserSessions { return e.browser }

// Service returns the listing service.
func (e *Explorer) Service() services.ListingService { return e.service }

// HasDefaults reports whether a default database is configured.
func (e *Explorer) HasDefaults() bool { return e.cfg.Defaults.Identifier != "" }

// DefaultDatabase is the configured default identifier. Never the token.
func (e *Explorer) DefaultDatabase() string { return e.cfg.Defaults.Identifier }

// Connect opens (or reuses) the backend session for the browser session id.
// An empty identifier or token is taken from the configured defaults. Every
// attempt is audited; clientIP is only recorded.
func (e *Explorer) Connect(ctx context.Context, id, clientIP string, desc models.ConnectionDescriptor) (datasource.SessionInfo, error) {
	if desc.Identifier == "" {
		desc.Identifier = e.cfg.Defaults.Identifier
	}
	if desc.Token == "" {
		desc.Token = e.cfg.Defaults.Token
	}

	info, err := e.sessions.Connect(ctx, id, desc)
	if err != nil {
		database := desc.Identifier
		var injection *sqlbuild.InjectionError
		if errors.As(err, &injection) {
			database = ""
			e.auditor.LogInjectionAttempt(id, audit.SQLInjectionDetails{
				Field:       injection.Kind,
				Fingerprint: injection.Fingerprint,
			}, clientIP)
		}
		e.auditor.LogConnection(id, audit.ConnectionDetails{
			Database: database,
			HasToken: desc.Token != "",
			Error:    logging.RedactSecret(err.Error(), desc.Token),
		}, clientIP)
		return datasource.SessionInfo{}, err
	}

	e.auditor.LogConnection(id, audit.ConnectionDetails{
		Backend:  info.Backend,
		Database: info.Database,
		HasToken: info.HasToken,
	}, clientIP)
	return info, nil
}

// RejectInput audits a filter or request body that failed validation.
func (e *Explorer) RejectInput(id, clientIP string, err error) {
	e.auditor.LogParameterValidation(id, err.Error(), clientIP)
}

// Disconnect closes the backend session bound to id.
func (e *Explorer) Disconnect(id string) bool {
	e.facts.Delete(id)
	return e.sessions.Disconnect(id)
}

// Info returns the backend session bound to id, if any.
func (e *Explorer) Info(id string) (datasource.SessionInfo, bool) {
	return e.sessions.Info(id)
}

// Bounds returns the filter bounds for the session's view.
func (e *Explorer) Bounds(ctx context.Context, id string) (*models.Bounds, error) {
	var bounds *models.Bounds
	err := e.sessions.Do(ctx, id, func(ctx context.Context, s datasource.Session) error {
		facts, err := e.sessionFacts(ctx, id, s)
		if err != nil {
			return err
		}
		bounds = facts.bounds
		return nil
	})
	return bounds, err
}

// Summary returns the filtered aggregate summary.
func (e *Explorer) Summary(ctx context.Context, id string, filter models.FilterState) (*models.AggregateSummary, error) {
	var summary *models.AggregateSummary
	err := e.sessions.Do(ctx, id, func(ctx context.Context, s datasource.Session) error {
		var err error
		summary, err = e.service.FetchSummary(ctx, s, filter)
		return err
	})
	return summary, err
}

// Rows returns one page of filtered listings. limit <= 0 returns all rows.
func (e *Explorer) Rows(ctx context.Context, id string, filter models.FilterState, limit, offset int) ([]models.Listing, error) {
	var rows []models.Listing
	err := e.sessions.Do(ctx, id, func(ctx context.Context, s datasource.Session) error {
		var err error
		rows, err = e.service.FetchRows(ctx, s, filter, limit, offset)
		return err
	})
	return rows, err
}

// Page runs everything the dashboard shows for one filter selection while
// holding the session, so concurrent filter changes from one browser run in
// order.
func (e *Explorer) Page(ctx context.Context, id string, filter models.FilterState, limit, offset int) (*Page, error) {
	page := &Page{Limit: limit, Offset: offset}
	err := e.sessions.Do(ctx, id, func(ctx context.Context, s datasource.Session) error {
		facts, err := e.sessionFacts(ctx, id, s)
		if err != nil {
			return err
		}
		page.Bounds = facts.bounds
		page.Market = facts.market

		if page.Summary, err = e.service.FetchSummary(ctx, s, filter); err != nil {
			return err
		}
		if page.Summary.Empty() {
			page.Rows = []models.Listing{}
			return nil
		}
		page.Rows, err = e.service.FetchRows(ctx, s, filter, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}

	if page.Summary.Empty() {
		page.Warning = apperrors.ErrEmptyResult.Error()
	}
	return page, nil
}

// sessionFacts returns the cached bounds and market snapshot for the backend
// session, computing them on first use. Caller holds the session via Do.
func (e *Explorer) sessionFacts(ctx context.Context, id string, s datasource.Session) (*sessionFacts, error) {
	info, ok := e.sessions.Info(id)
	if !ok {
		return nil, apperrors.ErrNotConnected
	}
	if cached, ok := e.facts.Load(id); ok {
		if f := cached.(*sessionFacts); f.connectedAt.Equal(info.ConnectedAt) {
			return f, nil
		}
	}

	bounds, err := e.service.DiscoverBounds(ctx, s)
	if err != nil {
		return nil, err
	}
	market, err := e.service.FetchSummary(ctx, s, models.FilterState{})
	if err != nil {
		return nil, err
	}

	f := &sessionFacts{connectedAt: info.ConnectedAt, bounds: bounds, market: market}
	e.facts.Store(id, f)
	return f, nil
}

// page parses limit and offset against the configured page sizes.
func (e *Explorer) page(values url.Values) (int, int, error) {
	return ParsePage(values, e.cfg.PageSize, e.cfg.MaxPageSize)
}
