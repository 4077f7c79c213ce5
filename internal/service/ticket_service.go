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

// TicketService handles the intake handoff and the read surface. Lifecycle
// and ownership mutations live in LifecycleService and AssignmentService.
type TicketService struct {
	uow        repository.UnitOfWork
	tickets    repository.TicketRepository
	branches   repository.BranchRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators.
type TicketDependencies struct {
	UnitOfWork repository.UnitOfWork
	TicketRepo repository.TicketRepository
	BranchRepo repository.BranchRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		uow:        deps.UnitOfWork,
		tickets:    deps.TicketRepo,
		branches:   deps.BranchRepo,
		dispatcher: deps.Dispatcher,
	}
}

// TicketCreateInput is the well-formed handoff from the intake collaborator.
type TicketCreateInput struct {
	Subject     string
	Description string
	Category    string
	Branch      string
	Priority    domain.TicketPriority
}

// TicketListInput describes listing filters.
type TicketListInput struct {
	States      []domain.TicketState
	Priorities  []domain.TicketPriority
	Branch      *string
	OwnerID     *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// Create opens a ticket for a requester: state new, no owner, with a paired
// created audit entry.
func (s *TicketService) Create(ctx context.Context, identity domain.Identity, input TicketCreateInput) (*domain.Ticket, error) {
	if identity.Role != domain.RoleRequester {
		return nil, apperrors.NewForbidden("only requesters open tickets")
	}
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}
	if input.Branch != "" {
		branch, err := s.branches.GetByCode(ctx, input.Branch)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("unknown branch", map[string]any{"branch": input.Branch})
			}
			return nil, apperrors.MapError(err)
		}
		if !branch.IsActive {
			return nil, apperrors.NewValidationError("branch inactive", map[string]any{"branch": input.Branch})
		}
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		CreatorID:   identity.UserID,
		Subject:     subject,
		Description: description,
		Category:    strings.TrimSpace(input.Category),
		Branch:      input.Branch,
		State:       domain.TicketStateNew,
		Priority:    priority,
	}

	err := s.uow.Do(ctx, func(ctx context.Context, repos repository.TxRepos) error {
		if err := repos.Tickets.Create(ctx, ticket); err != nil {
			return apperrors.MapError(err)
		}
		entry := &domain.AuditEntry{
			TicketID:    &ticket.ID,
			ActorID:     &identity.UserID,
			EventType:   domain.AuditEventCreated,
			Severity:    domain.SeverityInfo,
			Description: "ticket opened: " + subject,
			NewValue:    string(domain.TicketStateNew),
			Branch:      ticket.Branch,
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
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  identity.UserID,
		Payload: events.TicketCreatedPayload{
			Branch:   ticket.Branch,
			Priority: ticket.Priority,
			Subject:  ticket.Subject,
		},
	})
	return ticket, nil
}

// List returns tickets visible to the caller: requesters see their own,
// staff see everything the filter matches.
func (s *TicketService) List(ctx context.Context, identity domain.Identity, input TicketListInput) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{
		States:      input.States,
		Priorities:  input.Priorities,
		Branch:      input.Branch,
		OwnerID:     input.OwnerID,
		SearchTerm:  input.SearchTerm,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Limit:       input.Limit,
		Offset:      input.Offset,
	}
	if !identity.Role.IsStaff() {
		creatorID := identity.UserID
		filter.CreatorID = &creatorID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Get fetches one ticket, requesters only their own.
func (s *TicketService) Get(ctx context.Context, identity domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	if !identity.Role.IsStaff() && ticket.CreatorID != identity.UserID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
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
