package service

import (
	"context"
	"testing"

	"github.com/soportec/helpdesk-core/internal/domain"
)

func TestHasActiveWorkCountsOwnedInProgressOnly(t *testing.T) {
	store := newMemStore()
	svc := NewWorkGuardService(&stubTicketRepo{store: store})

	seedTicket(store, "t-1", domain.TicketStateInProgress, strPtr("sup-1"))
	seedTicket(store, "t-2", domain.TicketStateInProgress, strPtr("sup-1"))
	seedTicket(store, "t-3", domain.TicketStateInProgress, strPtr("sup-2"))
	seedTicket(store, "t-4", domain.TicketStateWaiting, nil)
	seedTicket(store, "t-5", domain.TicketStateResolved, strPtr("sup-1"))

	active, err := svc.HasActiveWork(context.Background(), "sup-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active.HasActive || active.Count != 2 {
		t.Fatalf("active work = %+v, want 2 in-progress tickets", active)
	}

	idle, err := svc.HasActiveWork(context.Background(), "sup-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idle.HasActive || idle.Count != 0 {
		t.Fatalf("active work = %+v, want none", idle)
	}
}

func TestHasActiveWorkRequiresUserID(t *testing.T) {
	svc := NewWorkGuardService(&stubTicketRepo{store: newMemStore()})

	_, err := svc.HasActiveWork(context.Background(), "")
	if got := errCode(t, err); got != "VALIDATION_FAILED" {
		t.Fatalf("error code = %s, want VALIDATION_FAILED", got)
	}
}
