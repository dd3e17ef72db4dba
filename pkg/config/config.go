package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is read when present; otherwise only the environment is used.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for listing-explorer.
// Configuration can come from YAML file (config.yaml), a .env file, or
// environment variables. Environment variables always override YAML values.
// Secrets (the MotherDuck token, the session secret) only come from the environment.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8501"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	Datasource DatasourceConfig `yaml:"datasource"`
	Session    SessionConfig    `yaml:"session"`
	Logging    LoggingConfig    `yaml:"logging"`
	CORS       CORSConfig       `yaml:"cors"`
}

// DatasourceConfig describes the default listings source and how sessions
// against it are managed.
type DatasourceConfig struct {
	// Database is the default connection identifier, e.g. "test_cso_g" or "md:test_cso_g".
	Database string `yaml:"database" env:"MOTHERDUCK_DATABASE" env-default:"test_cso_g"`
	// Token authenticates against the hosted service. Secret - not in YAML.
	Token string `yaml:"-" env:"MOTHERDUCK_TOKEN"`
	// View is the fully-qualified listings view.
	View    string        `yaml:"view" env:"LISTING_VIEW" env-default:"test_cso_g.casa.vw_a_cgenova"`
	Columns ColumnMapping `yaml:"columns"`

	// SessionTTLMinutes is how long an idle browser session keeps its connection.
	SessionTTLMinutes int `yaml:"session_ttl_minutes" env:"DATASOURCE_SESSION_TTL_MINUTES" env-default:"30"`
	// PageSize is the default number of rows per page in the listings table.
	PageSize int `yaml:"page_size" env:"LISTING_PAGE_SIZE" env-default:"50"`
	// MaxPageSize caps the page size a client can request.
	MaxPageSize int `yaml:"max_page_size" env:"LISTING_MAX_PAGE_SIZE" env-default:"500"`
}

// ColumnMapping names the physical view columns behind each listing field.
type ColumnMapping struct {
	Name        string `yaml:"name" env:"LISTING_COLUMN_NAME" env-default:"name"`
	URL         string `yaml:"url" env:"LISTING_COLUMN_URL" env-default:"url"`
	Description string `yaml:"description" env:"LISTING_COLUMN_DESCRIPTION" env-default:"description"`
	Rooms       string `yaml:"rooms" env:"LISTING_COLUMN_ROOMS" env-default:"number_of_rooms"`
	Price       string `yaml:"price" env:"LISTING_COLUMN_PRICE" env-default:"price_value_eur"`
	Size        string `yaml:"size" env:"LISTING_COLUMN_SIZE" env-default:"size_mq"`
}

// SessionConfig controls the browser session cookie.
type SessionConfig struct {
	// Secret signs the cookie. A random one is generated per process when empty.
	Secret string `yaml:"-" env:"SESSION_SECRET"`
	Secure bool   `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
}

// LoggingConfig controls the root zap logger and the optional Fluentd sink.
type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
	FluentHost  string `yaml:"fluent_host" env:"FLUENT_HOST" env-default:""`
	FluentPort  int    `yaml:"fluent_port" env:"FLUENT_PORT" env-default:"24224"`
	FluentTag   string `yaml:"fluent_tag" env:"FLUENT_TAG" env-default:"listing-explorer"`
}

// FluentEnabled returns true if logs should also be shipped to Fluentd.
func (c *LoggingConfig) FluentEnabled() bool {
	return c.FluentHost != ""
}

// CORSConfig holds the cross-origin settings for the JSON API.
type CORSConfig struct {
	// AllowedOriginsStr is a comma-separated origin list. Empty disables CORS.
	AllowedOriginsStr string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:""`

	// AllowedOrigins is parsed from AllowedOriginsStr (not from config file).
	AllowedOrigins []string `yaml:"-"`
}

// Load reads configuration from .env, config.yaml and the environment.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultConfigFile, version)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an error.
func LoadFrom(path, version string) (*Config, error) {
	// .env is optional; only a malformed file is reported
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.parseComplexFields()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate TLS configuration
	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	// Use HTTPS scheme if TLS is configured
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.CORS.AllowedOrigins = splitList(c.CORS.AllowedOriginsStr)
	c.Datasource.Database = strings.TrimSpace(c.Datasource.Database)
	c.Datasource.View = strings.TrimSpace(c.Datasource.View)
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", c.Port)
	}

	if c.Datasource.View == "" {
		return fmt.Errorf("datasource view is required")
	}
	if c.Datasource.SessionTTLMinutes < 1 {
		return fmt.Errorf("session_ttl_minutes must be positive, got %d", c.Datasource.SessionTTLMinutes)
	}
	if c.Datasource.PageSize < 1 {
		return fmt.Errorf("page_size must be positive, got %d", c.Datasource.PageSize)
	}
	if c.Datasource.MaxPageSize < c.Datasource.PageSize {
		return fmt.Errorf("max_page_size (%d) must not be smaller than page_size (%d)",
			c.Datasource.MaxPageSize, c.Datasource.PageSize)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist and be readable.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	// Both must be provided together or both empty
	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	// If both provided, verify files exist (actual readability checked by tls.LoadX509KeyPair at startup)
	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
