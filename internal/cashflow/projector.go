package cashflow

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/models"
)

// RowSource is the minimal ledger read interface for projection.
type RowSource interface {
	ListByAccountRange(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*models.LedgerRow, error)
}

// ProjectedRow is one ledger row with the balance after applying it.
type ProjectedRow struct {
	models.LedgerRow
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// Projection is a chronological fold of one bank account's rows.
type Projection struct {
	Rows           []ProjectedRow  `json:"rows"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	TotalInflow    decimal.Decimal `json:"total_inflow"`
	TotalOutflow   decimal.Decimal `json:"total_outflow"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// Projector folds ledger rows into running balances. Read-only: it takes no
// locks and tolerates rows written moments earlier by a concurrent
// settlement showing up or not.
type Projector struct {
	Source RowSource
}

func NewProjector(source RowSource) *Projector {
	return &Projector{Source: source}
}

// Project fetches all rows for the account in [from, to], orders them by
// date with insertion order breaking ties (a stable sort, so two runs over
// the same data agree on same-day running balances), and folds the running
// balance from openingBalance.
func (p *Projector) Project(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time, openingBalance decimal.Decimal) (*Projection, error) {
	rows, err := p.Source.ListByAccountRange(ctx, tenantID, bankAccountID, from, to)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	out := &Projection{
		Rows:           make([]ProjectedRow, 0, len(rows)),
		OpeningBalance: openingBalance,
		TotalInflow:    decimal.Zero,
		TotalOutflow:   decimal.Zero,
	}
	balance := openingBalance
	for _, row := range rows {
		balance = balance.Add(row.Amount)
		if row.Amount.IsPositive() {
			out.TotalInflow = out.TotalInflow.Add(row.Amount)
		} else if row.Amount.IsNegative() {
			out.TotalOutflow = out.TotalOutflow.Add(row.Amount.Abs())
		}
		out.Rows = append(out.Rows, ProjectedRow{LedgerRow: *row, RunningBalance: balance})
	}
	out.ClosingBalance = balance
	return out, nil
}
