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

// PresenceStore is the heartbeat-backed online flag provider.
type PresenceStore interface {
	IsOnline(ctx context.Context, userID string) (bool, error)
	Heartbeat(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
}

// AssignmentService governs who owns a ticket: first-take, retake from
// waiting, and owner-directed reassignment.
type AssignmentService struct {
	uow        repository.UnitOfWork
	users      repository.UserRepository
	presence   PresenceStore
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	UnitOfWork repository.UnitOfWork
	UserRepo   repository.UserRepository
	Presence   PresenceStore
	Dispatcher events.Dispatcher
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		uow:        deps.UnitOfWork,
		users:      deps.UserRepo,
		presence:   deps.Presence,
		dispatcher: deps.Dispatcher,
	}
}

// Take claims an ownerless ticket for the caller and moves it to
// in_progress. The claim is a conditional update on `owner_id IS NULL AND
// state IN (new, waiting)`, so of any number of racing callers exactly one
// wins; the rest get ALREADY_OWNED.
func (s *AssignmentService) Take(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	if !identity.Role.IsStaff() {
		return nil, apperrors.NewNotOwner("staff role required")
	}

	var taken *domain.Ticket
	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		ticket, err := repos.Tickets.Claim(ctx, ticketID, identity.UserID)
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return apperrors.MapError(err)
			}
			// the claim matched nothing; look at the row to say why
			current, getErr := repos.Tickets.GetByID(ctx, ticketID)
			if getErr != nil {
				if errors.Is(getErr, pgx.ErrNoRows) {
					return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
				}
				return apperrors.MapError(getErr)
			}
			if current.OwnerID != nil {
				return apperrors.NewAlreadyOwned(ticketID)
			}
			return apperrors.NewInvalidTransition(string(current.State), string(domain.TicketStateInProgress))
		}

		entry := &domain.AuditEntry{
			TicketID:      &ticket.ID,
			ActorID:       &identity.UserID,
			EventType:     domain.AuditEventAssigned,
			Severity:      domain.SeverityInfo,
			Description:   "ticket taken",
			PreviousValue: "",
			NewValue:      identity.UserID,
			Branch:        ticket.Branch,
		}
		if err := repos.Audit.Append(ctx, entry); err != nil {
			return apperrors.NewAuditWriteFailure(err)
		}
		taken = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		Type:     events.EventTicketTaken,
		TicketID: taken.ID,
		ActorID:  identity.UserID,
		Payload:  events.TicketTakenPayload{OwnerID: identity.UserID},
	})
	return taken, nil
}

// Reassign transfers ownership of an in_progress ticket to another online
// support agent. Only the current owner or an admin may reassign; the
// eligibility check runs server side because the client's agent list is
// advisory only.
func (s *AssignmentService) Reassign(ctx context.Context, identity domain.Identity, ticketID, targetUserID, comment string) (*domain.Ticket, error) {
	if !identity.Role.IsStaff() {
		return nil, apperrors.NewNotOwner("staff role required")
	}
	if strings.TrimSpace(comment) == "" {
		return nil, apperrors.NewValidationError("comment required", nil)
	}
	if targetUserID == "" {
		return nil, apperrors.NewValidationError("target user required", nil)
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": targetUserID})
		}
		return nil, apperrors.MapError(err)
	}
	if target.Role != domain.RoleSupport || !target.Active {
		return nil, apperrors.NewTargetUnavailable("target is not an active support agent",
			map[string]any{"user_id": targetUserID})
	}
	online, err := s.presence.IsOnline(ctx, targetUserID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !online {
		return nil, apperrors.NewTargetUnavailable("target is offline",
			map[string]any{"user_id": targetUserID})
	}

	var updated *domain.Ticket
	var oldOwner string
	err = s.uow.Do(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		ticket, err := repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
			}
			return apperrors.MapError(err)
		}
		if ticket.State != domain.TicketStateInProgress {
			return apperrors.NewInvalidTransition(string(ticket.State), string(domain.TicketStateInProgress))
		}
		if identity.Role != domain.RoleAdmin {
			if ticket.OwnerID == nil || *ticket.OwnerID != identity.UserID {
				return apperrors.NewNotOwner("caller does not own this ticket")
			}
		}
		if ticket.OwnerID != nil && *ticket.OwnerID == targetUserID {
			return apperrors.NewValidationError("target already owns this ticket", nil)
		}

		if ticket.OwnerID != nil {
			oldOwner = *ticket.OwnerID
		}
		updated, err = repos.Tickets.UpdateOwner(ctx, ticket.ID, oldOwner, targetUserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// the owner changed between our read and write
				return apperrors.NewConflict("ticket was modified concurrently",
					map[string]any{"ticket_id": ticket.ID})
			}
			return apperrors.MapError(err)
		}

		entry := &domain.AuditEntry{
			TicketID:      &ticket.ID,
			ActorID:       &identity.UserID,
			EventType:     domain.AuditEventReassigned,
			Severity:      domain.SeverityInfo,
			Description:   strings.TrimSpace(comment),
			PreviousValue: oldOwner,
			NewValue:      targetUserID,
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
		Type:     events.EventTicketReassigned,
		TicketID: updated.ID,
		ActorID:  identity.UserID,
		Payload: events.TicketReassignedPayload{
			OldOwnerID: oldOwner,
			NewOwnerID: targetUserID,
			Comment:    comment,
		},
	})
	return updated, nil
}

// OnlineSupport lists active support agents whose heartbeat is alive, the
// server-side source for the reassignment selector.
func (s *AssignmentService) OnlineSupport(ctx context.Context) ([]domain.User, error) {
	agents, err := s.users.ListByRole(ctx, domain.RoleSupport, 0, 0)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	online := make([]domain.User, 0, len(agents))
	for _, agent := range agents {
		ok, err := s.presence.IsOnline(ctx, agent.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if ok {
			online = append(online, agent)
		}
	}
	return online, nil
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
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
