package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same repository code runs standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxRepos bundles the repositories bound to one transaction. A ticket
// mutation and its audit entry always travel through the same TxRepos, which
// is what makes the pair atomic.
type TxRepos struct {
	Tickets TicketRepository
	Audit   AuditRepository
}

// UnitOfWork runs a function against transaction-bound repositories,
// committing on nil and rolling back on error.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error
}

type pgxUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgxUnitOfWork{pool: pool}
}

func (u *pgxUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos TxRepos) error) error {
	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	repos := TxRepos{
		Tickets: NewTicketRepository(tx),
		Audit:   NewAuditRepository(tx),
	}
	if err := fn(ctx, repos); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
