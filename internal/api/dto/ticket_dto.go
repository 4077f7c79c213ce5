package dto

import (
	"time"

	"github.com/soportec/helpdesk-core/internal/domain"
)

// CreateTicketRequest is the intake handoff payload.
type CreateTicketRequest struct {
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Category    string                `json:"category"`
	Branch      string                `json:"branch"`
	Priority    domain.TicketPriority `json:"priority"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	TargetState domain.TicketState `json:"target_state"`
	Comment     string             `json:"comment"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	TargetUserID string `json:"target_user_id"`
	Comment      string `json:"comment"`
}

// TicketResponse is the ticket representation on the wire.
type TicketResponse struct {
	ID           string                `json:"id"`
	ExternalKey  string                `json:"external_key"`
	CreatorID    string                `json:"creator_id"`
	OwnerID      *string               `json:"owner_id"`
	Subject      string                `json:"subject"`
	Description  string                `json:"description"`
	Category     string                `json:"category"`
	Branch       string                `json:"branch,omitempty"`
	State        domain.TicketState    `json:"state"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	WaitingSince *time.Time            `json:"waiting_since,omitempty"`
	ResolvedAt   *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt     *time.Time            `json:"closed_at,omitempty"`
}

// ActiveWorkResponse is the active-work guard result.
type ActiveWorkResponse struct {
	HasActive bool `json:"has_active"`
	Count     int  `json:"count"`
}
