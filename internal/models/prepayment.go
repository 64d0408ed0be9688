package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Prepayment statuses. An account stays active while any balance remains;
// once the balance reaches zero it ends as consumed (exhausted through
// allocations) or returned (a refund was involved).
const (
	PrepaymentActive   = "active"
	PrepaymentConsumed = "consumed"
	PrepaymentReturned = "returned"
)

type PrepaymentAccount struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Direction      string          `json:"direction"`
	TotalValue     decimal.Decimal `json:"total_value"`
	UsedValue      decimal.Decimal `json:"used_value"`
	ReturnedValue  decimal.Decimal `json:"returned_value"`
	Status         string          `json:"status"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// AvailableValue = total - used - returned. Must never go negative.
func (p *PrepaymentAccount) AvailableValue() decimal.Decimal {
	return p.TotalValue.Sub(p.UsedValue).Sub(p.ReturnedValue)
}

// RecomputeStatus derives the status from the current split.
func (p *PrepaymentAccount) RecomputeStatus() {
	switch {
	case p.AvailableValue().IsPositive():
		p.Status = PrepaymentActive
	case p.ReturnedValue.IsPositive():
		p.Status = PrepaymentReturned
	default:
		p.Status = PrepaymentConsumed
	}
}
