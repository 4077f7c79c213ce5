package dto

import (
	"time"

	"github.com/soportec/helpdesk-core/internal/domain"
)

// AuditEntryResponse is the wire form of one trail entry.
type AuditEntryResponse struct {
	ID            string                `json:"id"`
	TicketID      *string               `json:"ticket_id,omitempty"`
	ActorID       *string               `json:"actor_id,omitempty"`
	EventType     domain.AuditEventType `json:"event_type"`
	Severity      domain.AuditSeverity  `json:"severity"`
	Description   string                `json:"description"`
	PreviousValue string                `json:"previous_value,omitempty"`
	NewValue      string                `json:"new_value,omitempty"`
	Branch        string                `json:"branch,omitempty"`
	OccurredAt    time.Time             `json:"occurred_at"`
}

// PurgeResponse reports the number of deleted entries.
type PurgeResponse struct {
	Deleted int64 `json:"deleted"`
}
