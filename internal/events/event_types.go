package events

import (
	"time"

	"github.com/soportec/helpdesk-core/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketTaken        EventType = "ticket_taken"
	EventTicketReassigned   EventType = "ticket_reassigned"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventAuditPurged        EventType = "audit_purged"
)

// Event represents a domain event emitted by services after commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Branch   string                `json:"branch,omitempty"`
	Priority domain.TicketPriority `json:"priority"`
	Subject  string                `json:"subject"`
}

// TicketTakenPayload payload.
type TicketTakenPayload struct {
	OwnerID string `json:"owner_id"`
}

// TicketReassignedPayload payload.
type TicketReassignedPayload struct {
	OldOwnerID string `json:"old_owner_id"`
	NewOwnerID string `json:"new_owner_id"`
	Comment    string `json:"comment,omitempty"`
}

// TicketStateChangedPayload payload.
type TicketStateChangedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
	Comment  string             `json:"comment,omitempty"`
}

// AuditPurgedPayload payload.
type AuditPurgedPayload struct {
	Deleted int64 `json:"deleted"`
}
