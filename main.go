package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource/duckdb"
	_ "github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/listing-explorer/pkg/adapters/datasource/postgres"
	"github.com/ekaya-inc/listing-explorer/pkg/auth"
	"github.com/ekaya-inc/listing-explorer/pkg/config"
	"github.com/ekaya-inc/listing-explorer/pkg/handlers"
	"github.com/ekaya-inc/listing-explorer/pkg/logging"
	"github.com/ekaya-inc/listing-explorer/pkg/middleware"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	"github.com/ekaya-inc/listing-explorer/pkg/services"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
	"github.com/ekaya-inc/listing-explorer/ui"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, flush, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer flush()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		flush()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	adapters := datasource.RegisteredAdapters()
	backends := make([]string, 0, len(adapters))
	for _, a := range adapters {
		backends = append(backends, a.Type)
	}

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("database", logging.SanitizeConnectionString(cfg.Datasource.Database)),
		zap.Bool("token_configured", cfg.Datasource.Token != ""),
		zap.String("view", cfg.Datasource.View),
		zap.Strings("backends", backends),
		zap.Bool("fluent", cfg.Logging.FluentEnabled()),
	)

	columns := sqlbuild.Columns{
		Name:        cfg.Datasource.Columns.Name,
		URL:         cfg.Datasource.Columns.URL,
		Description: cfg.Datasource.Columns.Description,
		Rooms:       cfg.Datasource.Columns.Rooms,
		Price:       cfg.Datasource.Columns.Price,
		Size:        cfg.Datasource.Columns.Size,
	}
	listingService, err := services.NewListingService(cfg.Datasource.View, columns, logger)
	if err != nil {
		return err
	}

	sessions := datasource.NewSessionManager(datasource.SessionManagerConfig{
		TTLMinutes: cfg.Datasource.SessionTTLMinutes,
	}, datasource.NewProvider(logger), logger)
	defer sessions.Close()

	browser := auth.NewBrowserSessions(cfg.Session.Secret, auth.DeriveCookieSettings(cfg.BaseURL, cfg.Session.Secure))
	if cfg.Session.Secret == "" {
		logger.Warn("SESSION_SECRET not set; browser sessions will not survive a restart")
	}

	explorer := handlers.NewExplorer(listingService, sessions, browser, handlers.ExplorerConfig{
		Defaults: models.ConnectionDescriptor{
			Identifier: cfg.Datasource.Database,
			Token:      cfg.Datasource.Token,
		},
		PageSize:    cfg.Datasource.PageSize,
		MaxPageSize: cfg.Datasource.MaxPageSize,
	}, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, sessions, logger).RegisterRoutes(mux)
	handlers.NewAPIHandler(explorer, logger).RegisterRoutes(mux)

	dashboard, err := handlers.NewDashboardHandler(explorer, ui.AssetsFS(), logger)
	if err != nil {
		return err
	}
	dashboard.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           newRouter(cfg, mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting listing-explorer",
			zap.String("addr", srv.Addr),
			zap.String("version", cfg.Version),
			zap.Bool("tls", cfg.TLSCertPath != ""),
		)
		if cfg.TLSCertPath != "" {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newRouter wraps the route mux with the shared middleware stack.
func newRouter(cfg *config.Config, mux http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, middleware.RequestLogger(logger), chimw.Recoverer)

	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Mount("/", mux)
	return r
}
