package datasource

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/apperrors"
	"github.com/ekaya-inc/listing-explorer/pkg/logging"
	"github.com/ekaya-inc/listing-explorer/pkg/models"
)

const (
	DefaultSessionTTLMinutes = 30
	DefaultCleanupInterval   = 1 * time.Minute
	healthCheckTimeout       = 5 * time.Second
)

var errSessionManagerClosed = errors.New("session manager is closed")

// SessionManagerConfig holds configuration for the session manager
type SessionManagerConfig struct {
	TTLMinutes      int
	CleanupInterval time.Duration
}

// SessionManager maps browser sessions to open backend Sessions with
// TTL-based expiry and automatic cleanup. Each browser session has its own
// mutex so concurrent requests from one browser run one query at a time.
type SessionManager struct {
	mu              sync.RWMutex
	sessions        map[string]*ManagedSession // key: browser session id
	opener          Opener
	ttl             time.Duration
	cleanupInterval time.Duration
	stopped         bool
	stopChan        chan struct{}
	logger          *zap.Logger
	now             func() time.Time
}

// ManagedSession is a backend Session bound to one browser session.
type ManagedSession struct {
	session     Session
	descriptor  models.ConnectionDescriptor
	fingerprint string
	connectedAt time.Time
	lastUsed    time.Time
	closed      bool
	mu          sync.Mutex // held for the duration of every query
}

// SessionInfo is the token-free view of a managed session.
type SessionInfo struct {
	Backend     string    `json:"backend"`
	Database    string    `json:"database"`
	HasToken    bool      `json:"has_token"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NewSessionManager creates a session manager that opens sessions with opener.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewSessionManager(cfg SessionManagerConfig, opener Opener, logger *zap.Logger) *SessionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultSessionTTLMinutes
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultCleanupInterval
	}

	manager := &SessionManager{
		sessions:        make(map[string]*ManagedSession),
		opener:          opener,
		ttl:             time.Duration(cfg.TTLMinutes) * time.Minute,
		cleanupInterval: cfg.CleanupInterval,
		stopChan:        make(chan struct{}),
		logger:          logger.Named("sessions"),
		now:             time.Now,
	}

	go manager.cleanupExpiredSessions()
	return manager
}

// Connect binds a backend Session to the browser session id. When the id
// already holds a healthy session for the same descriptor it is reused;
// otherwise a new session is opened and the previous one closed.
func (m *SessionManager) Connect(ctx context.Context, id string, desc models.ConnectionDescriptor) (SessionInfo, error) {
	fingerprint := desc.Fingerprint()

	m.mu.RLock()
	existing, exists := m.sessions[id]
	m.mu.RUnlock()

	if exists && existing.fingerprint == fingerprint {
		existing.mu.Lock()
		healthCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := existing.session.Ping(healthCtx)
		cancel()
		if err == nil && !existing.closed {
			existing.lastUsed = m.now()
			info := existing.info()
			existing.mu.Unlock()
			return info, nil
		}
		existing.mu.Unlock()
		if err != nil {
			m.logger.Warn("session unhealthy, reconnecting",
				zap.String("session_id", id),
				zap.String("error", logging.SanitizeError(err)),
			)
		}
	}

	// Open outside the manager lock; connecting may take a network round trip
	session, err := m.opener.Open(ctx, desc)
	if err != nil {
		return SessionInfo{}, err
	}

	now := m.now()
	managed := &ManagedSession{
		session:     session,
		descriptor:  desc,
		fingerprint: fingerprint,
		connectedAt: now,
		lastUsed:    now,
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		_ = session.Close()
		return SessionInfo{}, apperrors.NewConnectionError(session.Backend(), errSessionManagerClosed)
	}
	previous := m.sessions[id]
	m.sessions[id] = managed
	total := len(m.sessions)
	m.mu.Unlock()

	if previous != nil {
		m.closeManaged(previous)
	}

	m.logger.Info("session connected",
		zap.String("session_id", id),
		zap.String("database", logging.SanitizeConnectionString(desc.String())),
		zap.String("backend", session.Backend()),
		zap.Int("active_sessions", total),
	)

	return managed.info(), nil
}

// Do runs fn with the backend Session bound to id while holding that
// session's mutex. Returns apperrors.ErrNotConnected if id has no session.
func (m *SessionManager) Do(ctx context.Context, id string, fn func(ctx context.Context, s Session) error) error {
	m.mu.RLock()
	managed, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return apperrors.ErrNotConnected
	}

	managed.mu.Lock()
	defer managed.mu.Unlock()

	// Disconnected while we waited for the lock
	if managed.closed {
		return apperrors.ErrNotConnected
	}

	managed.lastUsed = m.now()
	return fn(ctx, managed.session)
}

// Info returns the session bound to id, if any.
func (m *SessionManager) Info(id string) (SessionInfo, bool) {
	m.mu.RLock()
	managed, exists := m.sessions[id]
	m.mu.RUnlock()

	if !exists {
		return SessionInfo{}, false
	}
	return managed.info(), true
}

// Disconnect closes and forgets the session bound to id.
// Returns false if there was none.
func (m *SessionManager) Disconnect(id string) bool {
	m.mu.Lock()
	managed, exists := m.sessions[id]
	if exists {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !exists {
		return false
	}

	m.closeManaged(managed)
	m.logger.Info("session disconnected", zap.String("session_id", id))
	return true
}

// closeManaged waits for any in-flight query, then closes the session.
// Caller must NOT hold m.mu.
func (m *SessionManager) closeManaged(managed *ManagedSession) {
	managed.mu.Lock()
	defer managed.mu.Unlock()

	if managed.closed {
		return
	}
	managed.closed = true
	if err := managed.session.Close(); err != nil {
		m.logger.Warn("failed to close session",
			zap.String("backend", managed.session.Backend()),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
}

func (ms *ManagedSession) info() SessionInfo {
	return SessionInfo{
		Backend:     ms.session.Backend(),
		Database:    logging.SanitizeConnectionString(ms.descriptor.Identifier),
		HasToken:    ms.descriptor.HasToken(),
		ConnectedAt: ms.connectedAt,
	}
}

// cleanupExpiredSessions runs periodically to remove idle sessions.
// Runs in a background goroutine until stopChan is closed.
func (m *SessionManager) cleanupExpiredSessions() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup removes sessions that haven't been used within TTL.
// Sessions with a query in flight are never expired.
func (m *SessionManager) performCleanup() {
	m.mu.Lock()

	if m.stopped {
		m.mu.Unlock()
		return
	}

	now := m.now()
	var expired []*ManagedSession

	for id, managed := range m.sessions {
		if !managed.mu.TryLock() {
			continue // busy
		}
		idleTime := now.Sub(managed.lastUsed)
		managed.mu.Unlock()

		if idleTime > m.ttl {
			expired = append(expired, managed)
			delete(m.sessions, id)
			m.logger.Debug("expiring idle session",
				zap.String("session_id", id),
				zap.Duration("idle_time", idleTime),
				zap.Duration("ttl", m.ttl),
			)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	for _, managed := range expired {
		m.closeManaged(managed)
	}

	if len(expired) > 0 {
		m.logger.Info("cleaned up expired sessions",
			zap.Int("count", len(expired)),
			zap.Int("remaining", remaining),
		)
	}
}

// Close closes all sessions and stops the cleanup goroutine.
// This method is idempotent and safe to call multiple times.
func (m *SessionManager) Close() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.stopChan)

	sessions := m.sessions
	m.sessions = make(map[string]*ManagedSession)
	m.mu.Unlock()

	for _, managed := range sessions {
		m.closeManaged(managed)
	}

	m.logger.Info("session manager closed", zap.Int("closed", len(sessions)))
	return nil
}

// Stats returns statistics about the session manager.
// Safe to call concurrently.
func (m *SessionManager) Stats() SessionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := SessionStats{
		ActiveSessions:    len(m.sessions),
		TTLMinutes:        int(m.ttl.Minutes()),
		SessionsByBackend: make(map[string]int),
	}

	for _, managed := range m.sessions {
		stats.SessionsByBackend[managed.session.Backend()]++

		if !managed.mu.TryLock() {
			continue // in use, so not idle
		}
		idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
		managed.mu.Unlock()
		if idleSeconds > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idleSeconds
		}
	}

	return stats
}

// SessionStats contains statistics about the session manager state.
type SessionStats struct {
	ActiveSessions    int            `json:"active_sessions"`
	TTLMinutes        int            `json:"ttl_minutes"`
	SessionsByBackend map[string]int `json:"sessions_by_backend"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}
