package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/events"
	"github.com/soportec/helpdesk-core/internal/repository"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// AuditService exposes the append-only trail: filtered queries, per-ticket
// slices, account-level appends, and the privileged purge.
type AuditService struct {
	audit      repository.AuditRepository
	logger     *zap.Logger
	dispatcher events.Dispatcher
}

// NewAuditService constructs the service.
func NewAuditService(audit repository.AuditRepository, logger *zap.Logger, dispatcher events.Dispatcher) *AuditService {
	return &AuditService{audit: audit, logger: logger, dispatcher: dispatcher}
}

// AuditQueryInput mirrors the optional, conjunctive trail filters.
type AuditQueryInput struct {
	EventType *domain.AuditEventType
	Severity  *domain.AuditSeverity
	Search    *string
	Branch    *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// Record appends an account-level entry (login, security). Ticket-scoped
// entries are written inside the mutating transaction, not here.
func (s *AuditService) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if !domain.ValidAuditEventType(entry.EventType) {
		return apperrors.NewValidationError("unknown event type", map[string]any{"event_type": entry.EventType})
	}
	if entry.Severity == "" {
		entry.Severity = domain.SeverityInfo
	}
	if err := s.audit.Append(ctx, entry); err != nil {
		return apperrors.NewAuditWriteFailure(err)
	}
	return nil
}

// Query returns entries newest-first, all filters optional and conjunctive.
func (s *AuditService) Query(ctx context.Context, identity domain.Identity, input AuditQueryInput) ([]domain.AuditEntry, error) {
	if !identity.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if input.EventType != nil && !domain.ValidAuditEventType(*input.EventType) {
		return nil, apperrors.NewValidationError("unknown event type", map[string]any{"event_type": *input.EventType})
	}
	if input.Severity != nil && !domain.ValidAuditSeverity(*input.Severity) {
		return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": *input.Severity})
	}
	entries, err := s.audit.ListWithFilter(ctx, repository.AuditFilter{
		EventType: input.EventType,
		Severity:  input.Severity,
		Search:    input.Search,
		Branch:    input.Branch,
		From:      input.From,
		To:        input.To,
		Limit:     input.Limit,
		Offset:    input.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListByTicket returns the trail slice for one ticket.
func (s *AuditService) ListByTicket(ctx context.Context, identity domain.Identity, ticketID string, limit, offset int) ([]domain.AuditEntry, error) {
	if !identity.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	entries, err := s.audit.ListByTicket(ctx, ticketID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// Purge deletes every entry. Open to support as well as supervisor/admin,
// matching the shipped product's access decision. The deletion itself is
// logged through zap: the trail cannot record its own removal.
func (s *AuditService) Purge(ctx context.Context, identity domain.Identity) (int64, error) {
	if !identity.Role.IsStaff() {
		return 0, apperrors.NewForbidden("staff role required")
	}
	deleted, err := s.audit.PurgeAll(ctx)
	if err != nil {
		return 0, apperrors.MapError(err)
	}

	s.logger.Warn("audit trail purged",
		zap.String("actor_id", identity.UserID),
		zap.String("role", string(identity.Role)),
		zap.Int64("deleted", deleted),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAuditPurged,
			ActorID:   identity.UserID,
			Timestamp: time.Now(),
			Payload:   events.AuditPurgedPayload{Deleted: deleted},
		})
	}
	return deleted, nil
}
