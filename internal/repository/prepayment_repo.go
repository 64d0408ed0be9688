package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contaflux/backend/internal/models"
)

type PrepaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPrepaymentRepo(pool *pgxpool.Pool) *PrepaymentRepo {
	return &PrepaymentRepo{pool: pool}
}

func (r *PrepaymentRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *PrepaymentRepo) Create(ctx context.Context, p *models.PrepaymentAccount) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO prepayment_accounts (id, tenant_id, counterparty_id, direction, total_value, used_value, returned_value, status, version)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6, 1)
		RETURNING used_value, returned_value, version, created_at, updated_at
	`, p.ID, p.TenantID, p.CounterpartyID, p.Direction, p.TotalValue, p.Status).Scan(&p.UsedValue, &p.ReturnedValue, &p.Version, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PrepaymentRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PrepaymentAccount, error) {
	return r.get(ctx, r.pool, tenantID, id, "")
}

// GetByIDForUpdate locks the account row so concurrent allocations on the
// same prepayment serialize instead of both passing a stale balance check.
func (r *PrepaymentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (*models.PrepaymentAccount, error) {
	return r.get(ctx, tx, tenantID, id, " FOR UPDATE")
}

func (r *PrepaymentRepo) get(ctx context.Context, q queryer, tenantID, id uuid.UUID, suffix string) (*models.PrepaymentAccount, error) {
	var p models.PrepaymentAccount
	err := q.QueryRow(ctx, `
		SELECT id, tenant_id, counterparty_id, direction, total_value, used_value, returned_value, status, version, created_at, updated_at
		FROM prepayment_accounts WHERE id = $1 AND tenant_id = $2`+suffix,
		id, tenantID).Scan(&p.ID, &p.TenantID, &p.CounterpartyID, &p.Direction, &p.TotalValue, &p.UsedValue, &p.ReturnedValue, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// UpdateAmountsTx writes used/returned/status with an optimistic version
// check on top of the row lock.
func (r *PrepaymentRepo) UpdateAmountsTx(ctx context.Context, tx pgx.Tx, p *models.PrepaymentAccount) error {
	tag, err := tx.Exec(ctx, `
		UPDATE prepayment_accounts
		SET used_value = $4, returned_value = $5, status = $6, version = version + 1, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND version = $3
	`, p.ID, p.TenantID, p.Version, p.UsedValue, p.ReturnedValue, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: prepayment %s version %d", ErrVersionConflict, p.ID, p.Version)
	}
	p.Version++
	return nil
}

func (r *PrepaymentRepo) ListByCounterparty(ctx context.Context, tenantID, counterpartyID uuid.UUID) ([]*models.PrepaymentAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, counterparty_id, direction, total_value, used_value, returned_value, status, version, created_at, updated_at
		FROM prepayment_accounts WHERE counterparty_id = $1 AND tenant_id = $2 ORDER BY created_at DESC
	`, counterpartyID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.PrepaymentAccount
	for rows.Next() {
		var p models.PrepaymentAccount
		if err := rows.Scan(&p.ID, &p.TenantID, &p.CounterpartyID, &p.Direction, &p.TotalValue, &p.UsedValue, &p.ReturnedValue, &p.Status, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
