package security

import (
	"encoding/json"
	"io"
	"maps"
	"sync"
	"time"
)

// ServiceAudit is the service name under which the shared AuditLogger is
// published to modules.
const ServiceAudit = "security.audit"

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	// EventAuthzDecision records an allow or deny by a role-gated tool.
	EventAuthzDecision EventType = "authz_decision"
	// EventToolCall records a tool invocation served by the tool server.
	EventToolCall EventType = "tool_call"
	// EventTokenIssued records a successful password grant.
	EventTokenIssued EventType = "token_issued"
	// EventAuthFailure records a rejected credential or bearer token.
	EventAuthFailure EventType = "auth_failure"
)

// Decision values for EventAuthzDecision.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// AuditEvent is a single audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"type"`
	Tool      string            `json:"tool,omitempty"`
	Subject   string            `json:"subject,omitempty"`
	Roles     []string          `json:"roles,omitempty"`
	Decision  string            `json:"decision,omitempty"`
	Remote    string            `json:"remote,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditLoggerConfig configures an AuditLogger.
type AuditLoggerConfig struct {
	// Writer receives one JSON object per line. Nil disables writing.
	Writer io.Writer

	// Redactor, if set, scrubs Detail and Metadata values.
	Redactor *Redactor

	// OnEvent, if set, sees every event after redaction.
	OnEvent func(AuditEvent)

	// Now defaults to time.Now.
	Now func() time.Time
}

// AuditLogger writes audit events as JSONL. A nil *AuditLogger discards
// events, so callers never need to guard.
type AuditLogger struct {
	writer   io.Writer
	redactor *Redactor
	onEvent  func(AuditEvent)
	now      func() time.Time
	mu       sync.Mutex
}

// NewAuditLogger creates an audit logger.
func NewAuditLogger(cfg AuditLoggerConfig) *AuditLogger {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{
		writer:   cfg.Writer,
		redactor: cfg.Redactor,
		onEvent:  cfg.OnEvent,
		now:      now,
	}
}

// Log stamps and records event. The caller's Metadata map is not mutated.
func (l *AuditLogger) Log(event AuditEvent) {
	if l == nil {
		return
	}
	event.Timestamp = l.now().UTC()
	event.Metadata = maps.Clone(event.Metadata)

	if l.redactor != nil {
		event.Detail = l.redactor.Redact(event.Detail)
		for k, v := range event.Metadata {
			event.Metadata[k] = l.redactor.Redact(v)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.onEvent != nil {
		l.onEvent(event)
	}
	if l.writer != nil {
		_ = json.NewEncoder(l.writer).Encode(event)
	}
}
