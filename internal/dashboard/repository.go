package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Summary aggregates the tenant's position: what is still owed either way,
// what is overdue, and how much prepaid balance is left to consume.
type Summary struct {
	OpenReceivable       decimal.Decimal `json:"open_receivable"`
	OpenPayable          decimal.Decimal `json:"open_payable"`
	OverdueReceivable    decimal.Decimal `json:"overdue_receivable"`
	OverduePayable       decimal.Decimal `json:"overdue_payable"`
	PrepaymentAvailable  decimal.Decimal `json:"prepayment_available"`
	UnreconciledRowCount int             `json:"unreconciled_row_count"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summarize runs the aggregates in SQL; only totals cross the wire.
func (r *Repository) Summarize(ctx context.Context, tenantID uuid.UUID, today time.Time) (*Summary, error) {
	s := &Summary{
		OpenReceivable:      decimal.Zero,
		OpenPayable:         decimal.Zero,
		OverdueReceivable:   decimal.Zero,
		OverduePayable:      decimal.Zero,
		PrepaymentAvailable: decimal.Zero,
	}

	row := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN c.direction = 'receivable' THEN i.face_value + i.interest + i.fine - i.discount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN c.direction = 'payable' THEN i.face_value + i.interest + i.fine - i.discount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN c.direction = 'receivable' AND i.due_date < $2 THEN i.face_value + i.interest + i.fine - i.discount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN c.direction = 'payable' AND i.due_date < $2 THEN i.face_value + i.interest + i.fine - i.discount ELSE 0 END), 0)
		FROM installments i
		JOIN contracts c ON c.id = i.contract_id
		WHERE i.tenant_id = $1 AND i.paid_date IS NULL
	`, tenantID, today)
	if err := row.Scan(&s.OpenReceivable, &s.OpenPayable, &s.OverdueReceivable, &s.OverduePayable); err != nil {
		return nil, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_value - used_value - returned_value), 0)
		FROM prepayment_accounts
		WHERE tenant_id = $1
	`, tenantID)
	if err := row.Scan(&s.PrepaymentAvailable); err != nil {
		return nil, err
	}

	row = r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM ledger_rows
		WHERE tenant_id = $1 AND reconciliation = 'unreconciled'
	`, tenantID)
	if err := row.Scan(&s.UnreconciledRowCount); err != nil {
		return nil, err
	}
	return s, nil
}
