package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contaflux/backend/internal/models"
)

type InstallmentRepo struct {
	pool *pgxpool.Pool
}

func NewInstallmentRepo(pool *pgxpool.Pool) *InstallmentRepo {
	return &InstallmentRepo{pool: pool}
}

func (r *InstallmentRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// InsertBatchTx writes a freshly generated schedule inside the caller's
// transaction.
func (r *InstallmentRepo) InsertBatchTx(ctx context.Context, tx pgx.Tx, installments []models.Installment) error {
	for i := range installments {
		inst := &installments[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO installments (id, tenant_id, contract_id, sequence, due_date, face_value, paid_value, interest, fine, discount, version)
			VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, 0, 1)
			RETURNING version, created_at, updated_at
		`, inst.ID, inst.TenantID, inst.ContractID, inst.Sequence, inst.DueDate, inst.FaceValue).Scan(&inst.Version, &inst.CreatedAt, &inst.UpdatedAt)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *InstallmentRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Installment, error) {
	return r.get(ctx, r.pool, tenantID, id, "")
}

// GetByIDForUpdate locks the installment row for the life of tx.
func (r *InstallmentRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (*models.Installment, error) {
	return r.get(ctx, tx, tenantID, id, " FOR UPDATE")
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *InstallmentRepo) get(ctx context.Context, q queryer, tenantID, id uuid.UUID, suffix string) (*models.Installment, error) {
	var inst models.Installment
	err := q.QueryRow(ctx, `
		SELECT id, tenant_id, contract_id, sequence, due_date, face_value, paid_date, paid_value, interest, fine, discount, version, created_at, updated_at
		FROM installments WHERE id = $1 AND tenant_id = $2`+suffix,
		id, tenantID).Scan(&inst.ID, &inst.TenantID, &inst.ContractID, &inst.Sequence, &inst.DueDate, &inst.FaceValue, &inst.PaidDate, &inst.PaidValue, &inst.Interest, &inst.Fine, &inst.Discount, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &inst, nil
}

// UpdateSettlementTx writes the settlement fields with an optimistic version
// check. Zero rows affected means another request won the race.
func (r *InstallmentRepo) UpdateSettlementTx(ctx context.Context, tx pgx.Tx, inst *models.Installment) error {
	tag, err := tx.Exec(ctx, `
		UPDATE installments
		SET paid_date = $4, paid_value = $5, interest = $6, fine = $7, discount = $8, version = version + 1, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND version = $3
	`, inst.ID, inst.TenantID, inst.Version, inst.PaidDate, inst.PaidValue, inst.Interest, inst.Fine, inst.Discount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: installment %s version %d", ErrVersionConflict, inst.ID, inst.Version)
	}
	inst.Version++
	return nil
}

func (r *InstallmentRepo) ListByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, contract_id, sequence, due_date, face_value, paid_date, paid_value, interest, fine, discount, version, created_at, updated_at
		FROM installments WHERE contract_id = $1 AND tenant_id = $2 ORDER BY sequence
	`, contractID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := rows.Scan(&inst.ID, &inst.TenantID, &inst.ContractID, &inst.Sequence, &inst.DueDate, &inst.FaceValue, &inst.PaidDate, &inst.PaidValue, &inst.Interest, &inst.Fine, &inst.Discount, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &inst)
	}
	return list, rows.Err()
}

// ListSettledByContract returns the settled installments of a parent,
// ordered by sequence. Used by the delete policy to name the blockers.
func (r *InstallmentRepo) ListSettledByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, contract_id, sequence, due_date, face_value, paid_date, paid_value, interest, fine, discount, version, created_at, updated_at
		FROM installments WHERE contract_id = $1 AND tenant_id = $2 AND paid_date IS NOT NULL ORDER BY sequence
	`, contractID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := rows.Scan(&inst.ID, &inst.TenantID, &inst.ContractID, &inst.Sequence, &inst.DueDate, &inst.FaceValue, &inst.PaidDate, &inst.PaidValue, &inst.Interest, &inst.Fine, &inst.Discount, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, &inst)
	}
	return list, rows.Err()
}

// DeleteUnsettledByContractTx removes a parent's unsettled schedule rows and
// reports how many rows survive. The paid_date IS NULL predicate is
// re-evaluated after any concurrent settlement's row lock clears, so a row
// settled mid-delete is skipped, not erased; a non-zero remainder tells the
// caller a settlement won the race.
func (r *InstallmentRepo) DeleteUnsettledByContractTx(ctx context.Context, tx pgx.Tx, tenantID, contractID uuid.UUID) (int64, error) {
	_, err := tx.Exec(ctx,
		"DELETE FROM installments WHERE contract_id = $1 AND tenant_id = $2 AND paid_date IS NULL",
		contractID, tenantID)
	if err != nil {
		return 0, err
	}
	var remaining int64
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM installments WHERE contract_id = $1 AND tenant_id = $2",
		contractID, tenantID).Scan(&remaining)
	return remaining, err
}
