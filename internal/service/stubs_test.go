package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/soportec/helpdesk-core/internal/domain"
	"github.com/soportec/helpdesk-core/internal/events"
	"github.com/soportec/helpdesk-core/internal/repository"
	apperrors "github.com/soportec/helpdesk-core/pkg/util"
)

// memStore backs the stub repositories and the stub unit of work. The unit
// of work snapshots state before the callback and restores it on error, so
// the atomicity contract (no mutation without its audit entry) is observable
// in tests.
type memStore struct {
	txMu     sync.Mutex
	mu       sync.Mutex
	tickets  map[string]domain.Ticket
	entries  []domain.AuditEntry
	users    map[string]domain.User
	nextID   int
	auditErr error
	// afterGet runs once after the next ticket read, standing in for a
	// concurrent session that commits between this caller's read and write.
	afterGet func()
}

func newMemStore() *memStore {
	return &memStore{
		tickets: make(map[string]domain.Ticket),
		users:   make(map[string]domain.User),
	}
}

func (s *memStore) putTicket(t domain.Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		s.nextID++
		t.ID = fmt.Sprintf("t-%d", s.nextID)
	}
	s.tickets[t.ID] = t
}

func (s *memStore) putUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memStore) ticket(id string) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickets[id]
}

func (s *memStore) auditEntries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *memStore) snapshot() (map[string]domain.Ticket, []domain.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tickets := make(map[string]domain.Ticket, len(s.tickets))
	for k, v := range s.tickets {
		tickets[k] = v
	}
	entries := make([]domain.AuditEntry, len(s.entries))
	copy(entries, s.entries)
	return tickets, entries
}

func (s *memStore) restore(tickets map[string]domain.Ticket, entries []domain.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = tickets
	s.entries = entries
}

type stubTicketRepo struct {
	store *memStore
}

func (r *stubTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.nextID++
	ticket.ID = fmt.Sprintf("t-%d", r.store.nextID)
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.store.tickets[ticket.ID] = *ticket
	return nil
}

func (r *stubTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	ticket, ok := r.store.tickets[id]
	hook := r.store.afterGet
	r.store.afterGet = nil
	r.store.mu.Unlock()
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if hook != nil {
		hook()
	}
	out := ticket
	return &out, nil
}

func (r *stubTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.store.tickets {
		if filter.CreatorID != nil && ticket.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.OwnerID != nil && (ticket.OwnerID == nil || *ticket.OwnerID != *filter.OwnerID) {
			continue
		}
		if len(filter.States) > 0 && !containsState(filter.States, ticket.State) {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Claim mirrors the SQL compare-and-set: the mutation happens only while
// holding the lock and only if the ticket is still ownerless and takeable.
func (r *stubTicketRepo) Claim(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if ticket.OwnerID != nil || !domain.Takeable(ticket.State) {
		return nil, pgx.ErrNoRows
	}
	owner := ownerID
	ticket.OwnerID = &owner
	ticket.State = domain.TicketStateInProgress
	ticket.UpdatedAt = time.Now()
	r.store.tickets[id] = ticket
	out := ticket
	return &out, nil
}

func (r *stubTicketRepo) UpdateState(ctx context.Context, id string, from, to domain.TicketState, ownerID *string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.State != from {
		return nil, pgx.ErrNoRows
	}
	now := time.Now()
	ticket.State = to
	ticket.OwnerID = ownerID
	switch to {
	case domain.TicketStateWaiting:
		if ticket.WaitingSince == nil {
			ts := now
			ticket.WaitingSince = &ts
		}
	case domain.TicketStateResolved:
		if ticket.ResolvedAt == nil {
			ts := now
			ticket.ResolvedAt = &ts
		}
	case domain.TicketStateClosed:
		if ticket.ClosedAt == nil {
			ts := now
			ticket.ClosedAt = &ts
		}
	}
	ticket.UpdatedAt = now
	r.store.tickets[id] = ticket
	out := ticket
	return &out, nil
}

func (r *stubTicketRepo) UpdateOwner(ctx context.Context, id, currentOwnerID, newOwnerID string) (*domain.Ticket, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	ticket, ok := r.store.tickets[id]
	if !ok || ticket.State != domain.TicketStateInProgress ||
		ticket.OwnerID == nil || *ticket.OwnerID != currentOwnerID {
		return nil, pgx.ErrNoRows
	}
	owner := newOwnerID
	ticket.OwnerID = &owner
	ticket.UpdatedAt = time.Now()
	r.store.tickets[id] = ticket
	out := ticket
	return &out, nil
}

func (r *stubTicketRepo) CountActive(ctx context.Context, ownerID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, ticket := range r.store.tickets {
		if ticket.OwnerID != nil && *ticket.OwnerID == ownerID && ticket.State == domain.TicketStateInProgress {
			count++
		}
	}
	return count, nil
}

type stubAuditRepo struct {
	store *memStore
}

func (r *stubAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.auditErr != nil {
		return r.store.auditErr
	}
	r.store.nextID++
	entry.ID = fmt.Sprintf("a-%d", r.store.nextID)
	entry.OccurredAt = time.Now()
	r.store.entries = append(r.store.entries, *entry)
	return nil
}

func (r *stubAuditRepo) ListWithFilter(ctx context.Context, filter repository.AuditFilter) ([]domain.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.AuditEntry
	for _, entry := range r.store.entries {
		if filter.EventType != nil && entry.EventType != *filter.EventType {
			continue
		}
		if filter.Severity != nil && entry.Severity != *filter.Severity {
			continue
		}
		if filter.Branch != nil && entry.Branch != *filter.Branch {
			continue
		}
		if filter.Search != nil && !strings.Contains(strings.ToLower(entry.Description), strings.ToLower(*filter.Search)) {
			continue
		}
		if filter.From != nil && entry.OccurredAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && entry.OccurredAt.After(*filter.To) {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return out, nil
}

func (r *stubAuditRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.AuditEntry
	for _, entry := range r.store.entries {
		if entry.TicketID != nil && *entry.TicketID == ticketID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *stubAuditRepo) PurgeAll(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	deleted := int64(len(r.store.entries))
	r.store.entries = nil
	return deleted, nil
}

type stubUserRepo struct {
	store *memStore
}

func (r *stubUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	user, ok := r.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := user
	return &out, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, user := range r.store.users {
		if user.Email == email {
			out := user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) ListByRole(ctx context.Context, role domain.Role, limit, offset int) ([]domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []domain.User
	for _, user := range r.store.users {
		if user.Role == role && user.Active {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type stubBranchRepo struct {
	branches map[string]domain.Branch
}

func (r *stubBranchRepo) GetByCode(ctx context.Context, code string) (*domain.Branch, error) {
	branch, ok := r.branches[code]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := branch
	return &out, nil
}

func (r *stubBranchRepo) ListActive(ctx context.Context) ([]domain.Branch, error) {
	var out []domain.Branch
	for _, branch := range r.branches {
		if branch.IsActive {
			out = append(out, branch)
		}
	}
	return out, nil
}

// stubUnitOfWork runs the callback against the shared store, restoring the
// pre-callback snapshot when it fails, like a rolled-back transaction.
// Transactions are serialized so concurrent callers see committed state only.
type stubUnitOfWork struct {
	store *memStore
}

func (u *stubUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos repository.TxRepos) error) error {
	u.store.txMu.Lock()
	defer u.store.txMu.Unlock()
	tickets, entries := u.store.snapshot()
	repos := repository.TxRepos{
		Tickets: &stubTicketRepo{store: u.store},
		Audit:   &stubAuditRepo{store: u.store},
	}
	if err := fn(ctx, repos); err != nil {
		u.store.restore(tickets, entries)
		return err
	}
	return nil
}

type stubPresence struct {
	mu     sync.Mutex
	online map[string]bool
}

func newStubPresence(onlineIDs ...string) *stubPresence {
	online := make(map[string]bool)
	for _, id := range onlineIDs {
		online[id] = true
	}
	return &stubPresence{online: online}
}

func (p *stubPresence) IsOnline(ctx context.Context, userID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID], nil
}

func (p *stubPresence) Heartbeat(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = true
	return nil
}

func (p *stubPresence) Clear(ctx context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.Event, len(d.events))
	copy(out, d.events)
	return out
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	return apperrors.ToDomainError(err).Code
}

func apperrDetails(t *testing.T, err error) map[string]any {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	return apperrors.ToDomainError(err).Details
}

func containsState(states []domain.TicketState, state domain.TicketState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

func strPtr(s string) *string {
	return &s
}

func identity(userID string, role domain.Role) domain.Identity {
	return domain.Identity{UserID: userID, Role: role, IsOnline: true}
}
