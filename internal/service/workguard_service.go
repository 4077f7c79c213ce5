package service

import (
	"context"

	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/repository"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// WorkGuardService is the read-only predicate consulted before ending a
// support agent's session.
type WorkGuardService struct {
	tickets repository.TicketRepository
}

// NewWorkGuardService constructs the service.
func NewWorkGuardService(tickets repository.TicketRepository) *WorkGuardService {
	return &WorkGuardService{tickets: tickets}
}

// HasActiveWork counts tickets the user currently owns in in_progress.
func (s *WorkGuardService) HasActiveWork(ctx context.Context, userID string) (domain.ActiveWork, error) {
	if userID == "" {
		return domain.ActiveWork{}, apperrors.NewValidationError("user id required", nil)
	}
	count, err := s.tickets.CountActive(ctx, userID)
	if err != nil {
		return domain.ActiveWork{}, apperrors.MapError(err)
	}
	return domain.ActiveWork{HasActive: count > 0, Count: count}, nil
}
