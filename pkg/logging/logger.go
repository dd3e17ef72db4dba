package logging

import (
	"fmt"

	"github.com/fluent/fluent-logger-golang/fluent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/listing-explorer/pkg/config"
)

// NewLogger builds the root logger. Development mode switches to the console
// encoder. When a Fluentd host is configured, entries are also forwarded there.
// The returned cleanup flushes the logger and closes the Fluentd client.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, func(), error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if !cfg.FluentEnabled() {
		return logger, func() { _ = logger.Sync() }, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		TagPrefix:  cfg.FluentTag,
		// Connect lazily so a missing collector does not block startup
		Async: true,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to create fluentd client: %w", err)
	}

	fluentCore := NewFluentCore(client, level)
	logger = logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fluentCore)
	}))

	cleanup := func() {
		_ = logger.Sync()
		_ = client.Close()
	}
	return logger, cleanup, nil
}
