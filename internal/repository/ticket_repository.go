package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/soportec/helpdesk-core/internal/domain"
)

const ticketColumns = `id, external_key, creator_id, owner_id, subject, description, category, branch,
               state, priority, created_at, updated_at, waiting_since, resolved_at, closed_at`

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CreatorID   *string
	OwnerID     *string
	Branch      *string
	States      []domain.TicketState
	Priorities  []domain.TicketPriority
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence. All mutations funnel
// through here; nothing else writes the tickets table.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Claim atomically takes an ownerless ticket in a takeable state.
	// Returns pgx.ErrNoRows when the conditional update matched nothing.
	Claim(ctx context.Context, id, ownerID string) (*domain.Ticket, error)
	// UpdateState writes the state, its once-only timestamp and the owner
	// column in a single statement. The write is conditioned on the state
	// the caller validated against; pgx.ErrNoRows reports that another
	// transaction moved the row first.
	UpdateState(ctx context.Context, id string, from, to domain.TicketState, ownerID *string) (*domain.Ticket, error)
	// UpdateOwner swaps ownership of an in_progress ticket, conditioned on
	// the current owner. pgx.ErrNoRows reports a lost race.
	UpdateOwner(ctx context.Context, id, currentOwnerID, newOwnerID string) (*domain.Ticket, error)
	CountActive(ctx context.Context, ownerID string) (int, error)
}

type ticketRepository struct {
	db Querier
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db Querier) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, creator_id, owner_id, subject, description, category, branch, state, priority)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.CreatorID,
		ticket.OwnerID,
		ticket.Subject,
		ticket.Description,
		ticket.Category,
		ticket.Branch,
		ticket.State,
		ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// Claim is the take-race compare-and-set: the WHERE clause conditions on the
// ticket still being ownerless and takeable, so two racing agents cannot both
// succeed.
func (r *ticketRepository) Claim(ctx context.Context, id, ownerID string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET owner_id=$1, state='in_progress', updated_at=NOW()
        WHERE id=$2 AND owner_id IS NULL AND state IN ('new','waiting')
        RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, ownerID, id)
}

func (r *ticketRepository) UpdateState(ctx context.Context, id string, from, to domain.TicketState, ownerID *string) (*domain.Ticket, error) {
	// Once-only timestamps: COALESCE keeps an already-set value so
	// re-entering a state never resets it. updated_at always advances.
	// Conditioning on the state the caller read keeps the read-check-write
	// sequence safe under concurrent commits, same discipline as Claim: a
	// row that moved in the meantime matches nothing instead of being
	// overwritten.
	query := `
        UPDATE tickets SET
            state=$1,
            owner_id=$2,
            waiting_since = CASE WHEN $1='waiting' THEN COALESCE(waiting_since, NOW()) ELSE waiting_since END,
            resolved_at   = CASE WHEN $1='resolved' THEN COALESCE(resolved_at, NOW()) ELSE resolved_at END,
            closed_at     = CASE WHEN $1='closed' THEN COALESCE(closed_at, NOW()) ELSE closed_at END,
            updated_at = NOW()
        WHERE id=$3 AND state=$4
        RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, to, ownerID, id, from)
}

func (r *ticketRepository) UpdateOwner(ctx context.Context, id, currentOwnerID, newOwnerID string) (*domain.Ticket, error) {
	query := `
        UPDATE tickets SET owner_id=$1, updated_at=NOW()
        WHERE id=$2 AND owner_id=$3 AND state='in_progress'
        RETURNING ` + ticketColumns
	return r.fetchSingle(ctx, query, newOwnerID, id, currentOwnerID)
}

func (r *ticketRepository) CountActive(ctx context.Context, ownerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE owner_id=$1 AND state='in_progress'`
	var count int
	if err := r.db.QueryRow(ctx, query, ownerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.db.QueryRow(ctx, query, args...).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.CreatorID,
		&ticket.OwnerID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Category,
		&ticket.Branch,
		&ticket.State,
		&ticket.Priority,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.WaitingSince,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.Branch != nil {
		args = append(args, *filter.Branch)
		clauses = append(clauses, fmt.Sprintf("branch=$%d", len(args)))
	}
	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("state IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.CreatorID,
			&ticket.OwnerID,
			&ticket.Subject,
			&ticket.Description,
			&ticket.Category,
			&ticket.Branch,
			&ticket.State,
			&ticket.Priority,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.WaitingSince,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
