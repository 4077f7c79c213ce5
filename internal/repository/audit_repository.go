package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/soportec/helpdesk-core/internal/domain"
)

const auditColumns = `id, ticket_id, actor_id, event_type, severity, description, previous_value, new_value, branch, occurred_at`

// AuditFilter captures the independently optional, conjunctive query
// parameters of the trail.
type AuditFilter struct {
	EventType *domain.AuditEventType
	Severity  *domain.AuditSeverity
	Search    *string
	Branch    *string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// AuditRepository stores the append-only trail. There is no update method;
// rows are only inserted, read, or purged wholesale.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListWithFilter(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error)
	ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditEntry, error)
	PurgeAll(ctx context.Context) (int64, error)
}

type auditRepository struct {
	db Querier
}

// NewAuditRepository builds repository.
func NewAuditRepository(db Querier) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `
        INSERT INTO audit_log (ticket_id, actor_id, event_type, severity, description, previous_value, new_value, branch)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, occurred_at`
	return r.db.QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.EventType,
		entry.Severity,
		entry.Description,
		entry.PreviousValue,
		entry.NewValue,
		entry.Branch,
	).Scan(&entry.ID, &entry.OccurredAt)
}

func (r *auditRepository) ListWithFilter(ctx context.Context, filter AuditFilter) ([]domain.AuditEntry, error) {
	base := `SELECT ` + auditColumns + ` FROM audit_log`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EventType != nil {
		args = append(args, *filter.EventType)
		clauses = append(clauses, fmt.Sprintf("event_type=$%d", len(args)))
	}
	if filter.Severity != nil {
		args = append(args, *filter.Severity)
		clauses = append(clauses, fmt.Sprintf("severity=$%d", len(args)))
	}
	if filter.Branch != nil {
		args = append(args, *filter.Branch)
		clauses = append(clauses, fmt.Sprintf("branch=$%d", len(args)))
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		args = append(args, "%"+strings.TrimSpace(*filter.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("description ILIKE $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY occurred_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := fmt.Sprintf(`SELECT %s FROM audit_log WHERE ticket_id=$1 ORDER BY occurred_at DESC LIMIT %d OFFSET %d`,
		auditColumns, limit, offset)
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEntries(rows)
}

func (r *auditRepository) PurgeAll(ctx context.Context) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM audit_log`)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanAuditEntries(rows pgx.Rows) ([]domain.AuditEntry, error) {
	var result []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.EventType,
			&entry.Severity,
			&entry.Description,
			&entry.PreviousValue,
			&entry.NewValue,
			&entry.Branch,
			&entry.OccurredAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
