package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contaflux/backend/internal/models"
)

type LedgerRepo struct {
	pool *pgxpool.Pool
}

func NewLedgerRepo(pool *pgxpool.Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) Insert(ctx context.Context, row *models.LedgerRow) error {
	return r.insert(ctx, r.pool, row)
}

// InsertTx writes a ledger row inside the caller's transaction.
func (r *LedgerRepo) InsertTx(ctx context.Context, tx pgx.Tx, row *models.LedgerRow) error {
	return r.insert(ctx, tx, row)
}

func (r *LedgerRepo) insert(ctx context.Context, q queryer, row *models.LedgerRow) error {
	return q.QueryRow(ctx, `
		INSERT INTO ledger_rows (id, tenant_id, bank_account_id, date, amount, description, origin, reconciliation, installment_id, prepayment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, row.ID, row.TenantID, row.BankAccountID, row.Date, row.Amount, row.Description, row.Origin, row.Reconciliation, row.InstallmentID, row.PrepaymentID).Scan(&row.CreatedAt)
}

func (r *LedgerRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.LedgerRow, error) {
	var row models.LedgerRow
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, bank_account_id, date, amount, description, origin, reconciliation, installment_id, prepayment_id, created_at
		FROM ledger_rows WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&row.ID, &row.TenantID, &row.BankAccountID, &row.Date, &row.Amount, &row.Description, &row.Origin, &row.Reconciliation, &row.InstallmentID, &row.PrepaymentID, &row.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &row, nil
}

// ListByAccountRange returns all rows for one bank account within
// [from, to], ordered by date then insertion order. The (created_at, id)
// tie-break keeps same-day rows in a stable order across runs.
func (r *LedgerRepo) ListByAccountRange(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*models.LedgerRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, bank_account_id, date, amount, description, origin, reconciliation, installment_id, prepayment_id, created_at
		FROM ledger_rows
		WHERE bank_account_id = $1 AND tenant_id = $2 AND date >= $3 AND date <= $4
		ORDER BY date, created_at, id
	`, bankAccountID, tenantID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.LedgerRow
	for rows.Next() {
		var row models.LedgerRow
		if err := rows.Scan(&row.ID, &row.TenantID, &row.BankAccountID, &row.Date, &row.Amount, &row.Description, &row.Origin, &row.Reconciliation, &row.InstallmentID, &row.PrepaymentID, &row.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &row)
	}
	return list, rows.Err()
}

// SetReconciliation flips the reconciliation state. Reconciled rows are
// immutable: the guard only matches unreconciled rows when reconciling, so
// a second flip (or any edit attempt) reports a conflict.
func (r *LedgerRepo) SetReconciliation(ctx context.Context, tenantID, id uuid.UUID, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE ledger_rows SET reconciliation = $4
		WHERE id = $1 AND tenant_id = $2 AND reconciliation = $3
	`, id, tenantID, from, to)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: ledger row %s is not %s", ErrVersionConflict, id, from)
	}
	return nil
}
