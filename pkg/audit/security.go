// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/listing-explorer/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a database or view name.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventParameterValidation is logged when a filter or request body is rejected.
	EventParameterValidation SecurityEventType = "parameter_validation_failure"
	// EventSessionConnected is logged when a browser session binds a database.
	EventSessionConnected SecurityEventType = "session_connected"
	// EventConnectionFailure is logged when opening a database session fails.
	EventConnectionFailure SecurityEventType = "connection_failure"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis. Tokens never appear in an event.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	SessionID string            `json:"session_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a rejected identifier. The value
// itself is not recorded: users sometimes paste a token into the wrong field.
type SQLInjectionDetails struct {
	Field       string `json:"field"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// ConnectionDetails describes a connect attempt.
type ConnectionDetails struct {
	Backend  string `json:"backend,omitempty"`
	Database string `json:"database"` // sanitized identifier
	HasToken bool   `json:"has_token"`
	Error    string `json:"error,omitempty"`
}

// SecurityAuditor logs security events for SIEM consumption.
// Events are logged in structured JSON format with appropriate severity levels.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogInjectionAttempt records an identifier rejected by the injection guard.
// This is logged at ERROR level with "critical" severity for immediate alerting.
func (a *SecurityAuditor) LogInjectionAttempt(sessionID string, details SQLInjectionDetails, clientIP string) {
	event := a.event(EventSQLInjectionAttempt, sessionID, clientIP, details, "critical")

	a.logger.Error("SQL injection attempt detected",
		zap.String("event_json", marshal(event)),
		zap.String("session_id", sessionID),
		zap.String("field", details.Field),
		zap.String("fingerprint", details.Fingerprint),
		zap.String("client_ip", clientIP),
		zap.String("severity", event.Severity),
	)
}

// LogParameterValidation records a rejected filter or request body.
// This is logged at WARN level as these are typically user errors, not attacks.
func (a *SecurityAuditor) LogParameterValidation(sessionID, errorMessage, clientIP string) {
	errorMessage = logging.SanitizeMessage(errorMessage)
	event := a.event(EventParameterValidation, sessionID, clientIP,
		map[string]string{"error": errorMessage}, "warning")

	a.logger.Warn("Parameter validation failed",
		zap.String("event_json", marshal(event)),
		zap.String("session_id", sessionID),
		zap.String("error", errorMessage),
		zap.String("client_ip", clientIP),
		zap.String("severity", event.Severity),
	)
}

// LogConnection records a connect attempt. Failures are logged at WARN,
// successes at INFO.
func (a *SecurityAuditor) LogConnection(sessionID string, details ConnectionDetails, clientIP string) {
	details.Database = logging.SanitizeConnectionString(details.Database)
	details.Error = logging.SanitizeMessage(details.Error)

	if details.Error != "" {
		event := a.event(EventConnectionFailure, sessionID, clientIP, details, "warning")
		a.logger.Warn("Connection failed",
			zap.String("event_json", marshal(event)),
			zap.String("session_id", sessionID),
			zap.String("database", details.Database),
			zap.String("error", details.Error),
			zap.String("client_ip", clientIP),
			zap.String("severity", event.Severity),
		)
		return
	}

	event := a.event(EventSessionConnected, sessionID, clientIP, details, "info")
	a.logger.Info("Session connected",
		zap.String("event_json", marshal(event)),
		zap.String("session_id", sessionID),
		zap.String("backend", details.Backend),
		zap.String("database", details.Database),
		zap.String("client_ip", clientIP),
		zap.String("severity", event.Severity),
	)
}

func (a *SecurityAuditor) event(eventType SecurityEventType, sessionID, clientIP string, details any, severity string) SecurityEvent {
	return SecurityEvent{
		Timestamp: a.now().UTC(),
		EventType: eventType,
		SessionID: sessionID,
		ClientIP:  clientIP,
		Details:   details,
		Severity:  severity,
	}
}

// marshal ignores the error; the event types are plain structs and maps.
func marshal(event SecurityEvent) string {
	b, _ := json.Marshal(event)
	return string(b)
}
