package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/events"
	"github.com/soportec/helpdesk-core/internal/repository"
)

func newTicketFixture() (*memStore, *TicketService, *recordingDispatcher) {
	store := newMemStore()
	dispatcher := &recordingDispatcher{}
	svc := NewTicketService(TicketDependencies{
		UnitOfWork: &stubUnitOfWork{store: store},
		TicketRepo: &stubTicketRepo{store: store},
		BranchRepo: &stubBranchRepo{branches: map[string]domain.Branch{
			"HQ":  {ID: "b-1", Code: "HQ", Name: "Headquarters", IsActive: true},
			"OLD": {ID: "b-2", Code: "OLD", Name: "Closed office", IsActive: false},
		}},
		Dispatcher: dispatcher,
	})
	return store, svc, dispatcher
}

func TestCreateTicket(t *testing.T) {
	store, svc, dispatcher := newTicketFixture()

	ticket, err := svc.Create(context.Background(), identity("req-1", domain.RoleRequester), TicketCreateInput{
		Subject:     "VPN drops every hour",
		Description: "Connection resets at minute 60 on the dot.",
		Category:    "network",
		Branch:      "HQ",
		Priority:    domain.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.State != domain.TicketStateNew || ticket.OwnerID != nil {
		t.Fatalf("ticket opened as %s/owner=%v, want new and ownerless", ticket.State, ticket.OwnerID)
	}
	if ticket.CreatorID != "req-1" {
		t.Fatalf("creator = %s, want req-1", ticket.CreatorID)
	}
	if !strings.HasPrefix(ticket.ExternalKey, "TCK-") {
		t.Fatalf("external key = %q", ticket.ExternalKey)
	}

	entries := store.auditEntries()
	if len(entries) != 1 || entries[0].EventType != domain.AuditEventCreated {
		t.Fatalf("audit entries = %+v, want one created entry", entries)
	}
	if entries[0].TicketID == nil || *entries[0].TicketID != ticket.ID {
		t.Fatal("created entry not linked to the ticket")
	}

	published := dispatcher.published()
	if len(published) != 1 || published[0].Type != events.EventTicketCreated {
		t.Fatalf("published events = %+v, want one ticket_created", published)
	}
}

func TestCreateTicketDefaultsPriority(t *testing.T) {
	_, svc, _ := newTicketFixture()

	ticket, err := svc.Create(context.Background(), identity("req-1", domain.RoleRequester), TicketCreateInput{
		Subject:     "keyboard sticky",
		Description: "coffee incident",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Fatalf("priority = %s, want medium default", ticket.Priority)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	cases := []struct {
		name     string
		caller   domain.Identity
		input    TicketCreateInput
		wantCode string
	}{
		{"staff cannot open", identity("sup-1", domain.RoleSupport),
			TicketCreateInput{Subject: "s", Description: "d"}, "FORBIDDEN"},
		{"blank subject", identity("req-1", domain.RoleRequester),
			TicketCreateInput{Subject: "  ", Description: "d"}, "VALIDATION_FAILED"},
		{"blank description", identity("req-1", domain.RoleRequester),
			TicketCreateInput{Subject: "s", Description: ""}, "VALIDATION_FAILED"},
		{"unknown priority", identity("req-1", domain.RoleRequester),
			TicketCreateInput{Subject: "s", Description: "d", Priority: "blocker"}, "VALIDATION_FAILED"},
		{"unknown branch", identity("req-1", domain.RoleRequester),
			TicketCreateInput{Subject: "s", Description: "d", Branch: "MOON"}, "VALIDATION_FAILED"},
		{"inactive branch", identity("req-1", domain.RoleRequester),
			TicketCreateInput{Subject: "s", Description: "d", Branch: "OLD"}, "VALIDATION_FAILED"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, svc, _ := newTicketFixture()
			_, err := svc.Create(context.Background(), tc.caller, tc.input)
			if got := errCode(t, err); got != tc.wantCode {
				t.Fatalf("error code = %s, want %s", got, tc.wantCode)
			}
		})
	}
}

func TestCreateTicketRollsBackWhenAuditFails(t *testing.T) {
	store, svc, _ := newTicketFixture()
	store.auditErr = errors.New("trail unavailable")

	_, err := svc.Create(context.Background(), identity("req-1", domain.RoleRequester), TicketCreateInput{
		Subject:     "monitor flickers",
		Description: "only when it rains",
	})
	if got := errCode(t, err); got != "AUDIT_WRITE_FAILED" {
		t.Fatalf("error code = %s, want AUDIT_WRITE_FAILED", got)
	}

	tickets, _ := (&stubTicketRepo{store: store}).ListWithFilter(context.Background(), repository.TicketFilter{})
	if len(tickets) != 0 {
		t.Fatal("ticket persisted despite rolled-back audit write")
	}
}

func TestListScopesRequestersToOwnTickets(t *testing.T) {
	store, svc, _ := newTicketFixture()
	store.putTicket(domain.Ticket{ID: "t-mine", CreatorID: "req-1", State: domain.TicketStateNew})
	store.putTicket(domain.Ticket{ID: "t-theirs", CreatorID: "req-2", State: domain.TicketStateNew})
	ctx := context.Background()

	mine, err := svc.List(ctx, identity("req-1", domain.RoleRequester), TicketListInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "t-mine" {
		t.Fatalf("requester list = %+v, want only own ticket", mine)
	}

	all, err := svc.List(ctx, identity("sup-1", domain.RoleSupport), TicketListInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("staff list = %d tickets, want 2", len(all))
	}
}

func TestGetHidesForeignTicketsFromRequesters(t *testing.T) {
	store, svc, _ := newTicketFixture()
	store.putTicket(domain.Ticket{ID: "t-1", CreatorID: "req-1", State: domain.TicketStateNew})
	ctx := context.Background()

	if _, err := svc.Get(ctx, identity("req-1", domain.RoleRequester), "t-1"); err != nil {
		t.Fatalf("own ticket: unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, identity("req-2", domain.RoleRequester), "t-1"); errCode(t, err) != "NOT_FOUND" {
		t.Fatalf("foreign ticket: error code = %s, want NOT_FOUND", errCode(t, err))
	}
	if _, err := svc.Get(ctx, identity("sup-1", domain.RoleSupport), "t-1"); err != nil {
		t.Fatalf("staff read: unexpected error: %v", err)
	}
}
