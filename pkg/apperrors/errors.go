package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrNotConnected      = errors.New("no database session for this browser session")
	ErrInvalidIdentifier = errors.New("invalid database identifier")
	ErrInvalidFilter     = errors.New("invalid filter")

	// ErrConnection and ErrQuery are the kinds matched by errors.Is for
	// ConnectionError and QueryError values.
	ErrConnection = errors.New("connection error")
	ErrQuery      = errors.New("query error")

	// ErrEmptyResult is a warning, not a failure: the query succeeded and
	// matched zero listings.
	ErrEmptyResult = errors.New("no listings match the selected filters")
)

// ConnectionError reports an authentication or transport failure while opening
// a session to the analytical backend.
type ConnectionError struct {
	Backend string // "motherduck", "duckdb", "postgres", "sqlserver"
	Err     error
}

func (e *ConnectionError) Error() string {
	if e.Backend == "" {
		return "unable to connect: " + e.Err.Error()
	}
	return "unable to connect to " + e.Backend + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrConnection) true for any ConnectionError.
func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// QueryError reports a failed SQL execution, including a predicate that could
// not be built from the filter state.
type QueryError struct {
	Op  string // engine operation, e.g. "fetch summary"
	Err error
}

func (e *QueryError) Error() string {
	if e.Op == "" {
		return "query failed: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *QueryError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrQuery) true for any QueryError.
func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// NewConnectionError wraps err as a ConnectionError for the given backend.
func NewConnectionError(backend string, err error) error {
	return &ConnectionError{Backend: backend, Err: err}
}

// NewQueryError wraps err as a QueryError for the given engine operation.
func NewQueryError(op string, err error) error {
	return &QueryError{Op: op, Err: err}
}
