package datasource

import (
	"context"
	"sync"

	"github.com/ekaya-inc/listing-explorer/pkg/models"
	sqlbuild "github.com/ekaya-inc/listing-explorer/pkg/sql"
)

// fakeSession is a configurable Session for manager and provider tests.
type fakeSession struct {
	mu       sync.Mutex
	backend  string
	queries  []string
	result   *QueryResult
	queryErr error
	pingErr  error
	closed   bool
	closeErr error
}

func (s *fakeSession) Query(ctx context.Context, sqlQuery string, params []any) (*QueryResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, sqlQuery)
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if s.result != nil {
		return s.result, nil
	}
	return &QueryResult{Rows: []map[string]any{}}, nil
}

func (s *fakeSession) Dialect() sqlbuild.Dialect { return sqlbuild.DuckDB }

func (s *fakeSession) Backend() string {
	if s.backend == "" {
		return models.BackendMotherDuck
	}
	return s.backend
}

func (s *fakeSession) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.closeErr
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeOpener hands out a new fakeSession per Open and records them.
type fakeOpener struct {
	mu       sync.Mutex
	opened   []*fakeSession
	err      error
	openHook func(desc models.ConnectionDescriptor)
}

func (o *fakeOpener) Open(ctx context.Context, desc models.ConnectionDescriptor) (Session, error) {
	if o.openHook != nil {
		o.openHook(desc)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	s := &fakeSession{}
	o.opened = append(o.opened, s)
	return s, nil
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}
