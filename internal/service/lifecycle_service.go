package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/events"
	"github.com/soportec/helpdesk-core/internal/repository"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// LifecycleService enforces legal state transitions and persists the
// resulting ticket and audit entry atomically.
type LifecycleService struct {
	uow        repository.UnitOfWork
	dispatcher events.Dispatcher
}

// NewLifecycleService constructs the service.
func NewLifecycleService(uow repository.UnitOfWork, dispatcher events.Dispatcher) *LifecycleService {
	return &LifecycleService{uow: uow, dispatcher: dispatcher}
}

// Transition moves a ticket along one lifecycle edge. The caller must be
// staff, and support agents must own the ticket. The mutation and its
// state_changed audit entry commit in one transaction; a transition is never
// observable without its paired entry.
func (s *LifecycleService) Transition(ctx context.Context, identity domain.Identity, ticketID string, target domain.TicketState, comment string) (*domain.Ticket, error) {
	if !identity.Role.IsStaff() {
		return nil, apperrors.NewNotOwner("staff role required")
	}
	if !domain.ValidState(target) {
		return nil, apperrors.NewValidationError("unknown target state", map[string]any{"target_state": target})
	}
	if strings.TrimSpace(comment) == "" {
		return nil, apperrors.NewValidationError("comment required", nil)
	}

	var updated *domain.Ticket
	var oldState domain.TicketState
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}

		// ownership gate before anything else: a support agent poking at
		// someone else's ticket gets a fast, explicit 403, not a 404
		if !identity.Role.Elevated() {
			if ticket.OwnerID == nil || *ticket.OwnerID != identity.UserID {
				return apperrors.NewNotOwner("caller does not own this ticket")
			}
		}

		if !domain.CanTransition(ticket.State, target) {
			return apperrors.NewInvalidTransition(string(ticket.State), string(target))
		}

		owner := ticket.OwnerID
		if target == domain.TicketStateInProgress {
			// the take path assigns owners; the state machine only keeps
			// an existing one
			if owner == nil {
				return apperrors.NewValidationError("ticket has no owner; use the assign operation", nil)
			}
		} else {
			// ownership only holds while work is active; releasing it keeps
			// waiting tickets claimable and the who-resolved record lives in
			// the audit trail
			owner = nil
		}

		oldState = ticket.State
		updated, err = repos.Tickets.UpdateState(ctx, ticket.ID, oldState, target, owner)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// another transaction moved the ticket between our read
				// and write
				return apperrors.NewConflict("ticket was modified concurrently",
					map[string]any{"ticket_id": ticket.ID})
			}
			return apperrors.MapError(err)
		}

		entry := &domain.AuditEntry{
			TicketID:      &ticket.ID,
			ActorID:       &identity.UserID,
			EventType:     domain.AuditEventStateChanged,
			Severity:      domain.SeverityInfo,
			Description:   strings.TrimSpace(comment),
			PreviousValue: string(oldState),
			NewValue:      string(target),
			Branch:        ticket.Branch,
		}
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return apperrors.NewAuditWriteFailure(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketStateChanged,
		TicketID: updated.ID,
		ActorID:  identity.UserID,
		Payload: events.TicketStateChangedPayload{
			OldState: oldState,
			NewState: target,
			Comment:  comment,
		},
	})
	return updated, nil
}

func (s *LifecycleService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
