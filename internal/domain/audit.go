package domain

import "time"

// AuditEventType captures what kind of change an entry records.
type AuditEventType string

const (
	AuditEventCreated      AuditEventType = "created"
	AuditEventAssigned     AuditEventType = "assigned"
	AuditEventReassigned   AuditEventType = "reassigned"
	AuditEventStateChanged AuditEventType = "state_changed"
	AuditEventLogin        AuditEventType = "login"
	AuditEventSecurity     AuditEventType = "security"
)

// AuditSeverity grades entries for filtering.
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityError    AuditSeverity = "error"
	SeverityCritical AuditSeverity = "critical"
)

// AuditEntry is an immutable row in the append-only trail. TicketID is nil
// for account-level entries such as logins.
type AuditEntry struct {
	ID            string
	TicketID      *string
	ActorID       *string
	EventType     AuditEventType
	Severity      AuditSeverity
	Description   string
	PreviousValue string
	NewValue      string
	Branch        string
	OccurredAt    time.Time
}

// ValidAuditEventType reports whether t is a known event type.
func ValidAuditEventType(t AuditEventType) bool {
	switch t {
	case AuditEventCreated, AuditEventAssigned, AuditEventReassigned,
		AuditEventStateChanged, AuditEventLogin, AuditEventSecurity:
		return true
	}
	return false
}

// ValidAuditSeverity reports whether s is a known severity.
func ValidAuditSeverity(s AuditSeverity) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return true
	}
	return false
}
