package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contaflux/backend/internal/models"
)

type ContractRepo struct {
	pool *pgxpool.Pool
}

func NewContractRepo(pool *pgxpool.Pool) *ContractRepo {
	return &ContractRepo{pool: pool}
}

func (r *ContractRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *ContractRepo) Create(ctx context.Context, c *models.Contract) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO contracts (id, tenant_id, counterparty_id, kind, direction, description, start_date, end_date, first_due_date, periodicity, monthly_value, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, c.ID, c.TenantID, c.CounterpartyID, c.Kind, c.Direction, c.Description, c.StartDate, c.EndDate, c.FirstDueDate, c.Periodicity, c.MonthlyValue, c.Status).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *ContractRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error) {
	var c models.Contract
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, counterparty_id, kind, direction, description, start_date, end_date, first_due_date, periodicity, monthly_value, status, created_at, updated_at
		FROM contracts WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&c.ID, &c.TenantID, &c.CounterpartyID, &c.Kind, &c.Direction, &c.Description, &c.StartDate, &c.EndDate, &c.FirstDueDate, &c.Periodicity, &c.MonthlyValue, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &c, nil
}

func (r *ContractRepo) Update(ctx context.Context, c *models.Contract) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE contracts SET counterparty_id = $3, description = $4, start_date = $5, end_date = $6, first_due_date = $7, periodicity = $8, monthly_value = $9, status = $10, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
	`, c.ID, c.TenantID, c.CounterpartyID, c.Description, c.StartDate, c.EndDate, c.FirstDueDate, c.Periodicity, c.MonthlyValue, c.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contract %s", ErrNotFound, c.ID)
	}
	return nil
}

// UpdateStatusTx flips the contract status only from the expected current
// one. Zero rows means the contract changed under us or is gone.
func (r *ContractRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID, from, to string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE contracts SET status = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = $3
	`, id, tenantID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contract %s is not %s", ErrVersionConflict, id, from)
	}
	return nil
}

func (r *ContractRepo) DeleteTx(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, "DELETE FROM contracts WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: contract %s", ErrNotFound, id)
	}
	return nil
}

func (r *ContractRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Contract, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, counterparty_id, kind, direction, description, start_date, end_date, first_due_date, periodicity, monthly_value, status, created_at, updated_at
		FROM contracts WHERE tenant_id = $1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(&c.ID, &c.TenantID, &c.CounterpartyID, &c.Kind, &c.Direction, &c.Description, &c.StartDate, &c.EndDate, &c.FirstDueDate, &c.Periodicity, &c.MonthlyValue, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}
