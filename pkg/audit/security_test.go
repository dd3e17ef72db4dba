package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	return logger, recorded
}

func newTestAuditor(t *testing.T) (*SecurityAuditor, *observer.ObservedLogs) {
	t.Helper()
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	auditor.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return auditor, recorded
}

func decodeEvent(t *testing.T, entry observer.LoggedEntry) SecurityEvent {
	t.Helper()
	raw, ok := entry.ContextMap()["event_json"].(string)
	require.True(t, ok, "event_json field should be a string")

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

func TestNewSecurityAuditor(t *testing.T) {
	logger, _ := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	assert.NotNil(t, auditor)
	assert.NotNil(t, auditor.logger)
}

func TestLogInjectionAttempt(t *testing.T) {
	auditor, recorded := newTestAuditor(t)

	auditor.LogInjectionAttempt("browser-1", SQLInjectionDetails{
		Field:       "database",
		Fingerprint: "s&1c",
	}, "192.168.1.100")

	logs := recorded.All()
	require.Len(t, logs, 1, "Expected exactly one log entry")

	entry := logs[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "security_audit", entry.LoggerName)
	assert.Equal(t, "SQL injection attempt detected", entry.Message)

	fields := entry.ContextMap()
	assert.Equal(t, "browser-1", fields["session_id"])
	assert.Equal(t, "database", fields["field"])
	assert.Equal(t, "s&1c", fields["fingerprint"])
	assert.Equal(t, "critical", fields["severity"])

	event := decodeEvent(t, entry)
	assert.Equal(t, EventSQLInjectionAttempt, event.EventType)
	assert.Equal(t, "192.168.1.100", event.ClientIP)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), event.Timestamp)
}

func TestLogParameterValidation(t *testing.T) {
	auditor, recorded := newTestAuditor(t)

	auditor.LogParameterValidation("browser-1", `min_price must be a number, got "token=abc123"`, "10.0.0.1")

	logs := recorded.All()
	require.Len(t, logs, 1)
	entry := logs[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)

	errField, _ := entry.ContextMap()["error"].(string)
	assert.NotContains(t, errField, "abc123")

	event := decodeEvent(t, entry)
	assert.Equal(t, EventParameterValidation, event.EventType)
	assert.Equal(t, "warning", event.Severity)
}

func TestLogConnection(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		auditor, recorded := newTestAuditor(t)

		auditor.LogConnection("browser-1", ConnectionDetails{
			Backend:  "postgres",
			Database: "postgres://reader:hunter2@db:5432/listings",
			HasToken: true,
		}, "10.0.0.1")

		logs := recorded.All()
		require.Len(t, logs, 1)
		entry := logs[0]
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		assert.Equal(t, "Session connected", entry.Message)

		event := decodeEvent(t, entry)
		assert.Equal(t, EventSessionConnected, event.EventType)
		assert.NotContains(t, entry.ContextMap()["event_json"], "hunter2")
	})

	t.Run("failure", func(t *testing.T) {
		auditor, recorded := newTestAuditor(t)

		auditor.LogConnection("browser-1", ConnectionDetails{
			Database: "md:test_cso_g",
			Error:    "open md:test_cso_g?motherduck_token=secret-value: unauthorized",
		}, "10.0.0.1")

		logs := recorded.All()
		require.Len(t, logs, 1)
		entry := logs[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)

		event := decodeEvent(t, entry)
		assert.Equal(t, EventConnectionFailure, event.EventType)
		assert.NotContains(t, entry.ContextMap()["event_json"], "secret-value")
		assert.NotContains(t, entry.ContextMap()["error"], "secret-value")
	})
}
