package repository

import (
	"context"

	"github.com/soportec/helpdesk-core/internal/domain"
)

// BranchRepository lists office locations used for tagging and filtering.
type BranchRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Branch, error)
	ListActive(ctx context.Context) ([]domain.Branch, error)
}

type branchRepository struct {
	db Querier
}

// NewBranchRepository instantiates repository.
func NewBranchRepository(db Querier) BranchRepository {
	return &branchRepository{db: db}
}

func (r *branchRepository) GetByCode(ctx context.Context, code string) (*domain.Branch, error) {
	const query = `SELECT id, code, name, is_active, created_at FROM branches WHERE code=$1`
	var branch domain.Branch
	if err := r.db.QueryRow(ctx, query, code).Scan(
		&branch.ID,
		&branch.Code,
		&branch.Name,
		&branch.IsActive,
		&branch.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) ListActive(ctx context.Context) ([]domain.Branch, error) {
	const query = `SELECT id, code, name, is_active, created_at FROM branches WHERE is_active ORDER BY code`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Branch
	for rows.Next() {
		var branch domain.Branch
		if err := rows.Scan(
			&branch.ID,
			&branch.Code,
			&branch.Name,
			&branch.IsActive,
			&branch.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, branch)
	}
	return result, rows.Err()
}
