package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates audit event types.
type EventType string

const (
	EventPageView        EventType = "page_view"
	EventClick           EventType = "click"
	EventFormInteraction EventType = "form_interaction"
	EventLoginSuccess    EventType = "login_success"
	EventLoginFailed     EventType = "login_failed"
	EventThreatDetected  EventType = "threat_detected"
	EventSlugRotated     EventType = "slug_rotated"
)

// ThreatType classifies a threat_detected event.
type ThreatType string

const (
	ThreatBotActivity    ThreatType = "bot_activity"
	ThreatHoneypotAccess ThreatType = "honeypot_access"
)

// Severity grades a threat finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Resolution states for an audit event. The transition is one-way: open → resolved,
// and resolution_status is the only field ever updated after insert.
const (
	ResolutionOpen     = "open"
	ResolutionResolved = "resolved"
)

// AuditEvent represents a security_audit_logs row. Rows are append-only.
type AuditEvent struct {
	ID               uuid.UUID       `json:"id"`
	Subdomain        string          `json:"subdomain"`
	EventType        EventType       `json:"event_type"`
	IdentityID       *uuid.UUID      `json:"identity_id,omitempty"`
	IPAddress        string          `json:"ip_address"`
	UserAgent        string          `json:"user_agent"`
	Country          string          `json:"country"`
	Metadata         json.RawMessage `json:"metadata"`
	ResolutionStatus string          `json:"resolution_status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// IsThreat reports whether the event is a threat record.
func (e *AuditEvent) IsThreat() bool {
	return e.EventType == EventThreatDetected
}
