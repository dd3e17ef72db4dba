package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/logging"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// Opener opens sessions from connection descriptors.
type Opener interface {
	Open(ctx context.Context, desc models.ConnectionDescriptor) (Session, error)
}

// Provider is the Opener backed by the adapter registry. Adapters register
// themselves from init(); import them for side effects.
type Provider struct {
	logger *zap.Logger
}

// NewProvider creates a provider.
func NewProvider(logger *zap.Logger) *Provider {
	return &Provider{logger: logger.Named("datasource")}
}

// Open normalizes the descriptor's identifier, dispatches to the adapter for
// its backend and returns a read-only Session. Failures are ConnectionErrors
// with credentials scrubbed from the message. There is no retry.
func (p *Provider) Open(ctx context.Context, desc models.ConnectionDescriptor) (Session, error) {
	target, err := Normalize(desc.Identifier)
	if err != nil {
		return nil, err
	}

	open := GetOpener(target.Backend)
	if open == nil {
		return nil, apperrors.NewConnectionError(target.Backend,
			fmt.Errorf("no adapter registered for backend %q", target.Backend))
	}

	started := time.Now()
	session, err := open(ctx, target, desc.Token)
	if err != nil {
		scrubbed := scrub(err, desc.Token)
		p.logger.Warn("failed to open session",
			zap.String("backend", target.Backend),
			zap.String("target", logging.SanitizeConnectionString(target.URI)),
			zap.Bool("token", desc.HasToken()),
			zap.String("error", scrubbed.Error()),
		)
		var connErr *apperrors.ConnectionError
		if errors.As(err, &connErr) {
			return nil, apperrors.NewConnectionError(target.Backend, scrub(connErr.Err, desc.Token))
		}
		return nil, apperrors.NewConnectionError(target.Backend, scrubbed)
	}

	p.logger.Info("opened session",
		zap.String("backend", target.Backend),
		zap.String("target", logging.SanitizeConnectionString(target.URI)),
		zap.Bool("token", desc.HasToken()),
		zap.Duration("elapsed", time.Since(started)),
	)

	return &guardedSession{
		inner:  session,
		token:  desc.Token,
		logger: p.logger.With(zap.String("backend", target.Backend)),
	}, nil
}

// guardedSession rejects anything but a single SELECT and scrubs the token
// from every error it returns.
type guardedSession struct {
	inner  Session
	token  string
	logger *zap.Logger
}

func (s *guardedSession) Query(ctx context.Context, sqlQuery string, params []any) (*QueryResult, error) {
	normalized, err := sqlbuild.ValidateReadOnly(sqlQuery)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := s.inner.Query(ctx, normalized, params)
	if err != nil {
		err = scrub(err, s.token)
		s.logger.Debug("query failed",
			zap.String("sql", logging.SanitizeQuery(normalized)),
			zap.Duration("elapsed", time.Since(started)),
			zap.String("error", err.Error()),
		)
		return nil, err
	}

	s.logger.Debug("query executed",
		zap.String("sql", logging.SanitizeQuery(normalized)),
		zap.Int("params", len(params)),
		zap.Int("rows", result.RowCount),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (s *guardedSession) Dialect() sqlbuild.Dialect { return s.inner.Dialect() }

func (s *guardedSession) Backend() string { return s.inner.Backend() }

func (s *guardedSession) Ping(ctx context.Context) error {
	if err := s.inner.Ping(ctx); err != nil {
		return scrub(err, s.token)
	}
	return nil
}

func (s *guardedSession) Close() error {
	return s.inner.Close()
}

// scrubbedError keeps the original chain for errors.Is while presenting a
// message with credentials removed.
type scrubbedError struct {
	msg string
	err error
}

func (e *scrubbedError) Error() string { return e.msg }
func (e *scrubbedError) Unwrap() error { return e.err }

func scrub(err error, token string) error {
	if err == nil {
		return nil
	}
	msg := logging.RedactSecret(logging.SanitizeError(err), token)
	if msg == err.Error() {
		return err
	}
	return &scrubbedError{msg: msg, err: err}
}
