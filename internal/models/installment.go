package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Derived installment statuses. Never stored: always recomputed from
// paid_date and due_date at read time.
const (
	InstallmentOpen     = "open"
	InstallmentOverdue  = "overdue"
	InstallmentOnTime   = "on_time"
	InstallmentPaidLate = "paid_late"
)

type Installment struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	ContractID uuid.UUID       `json:"contract_id"`
	Sequence   int             `json:"sequence"`
	DueDate    time.Time       `json:"due_date"`
	FaceValue  decimal.Decimal `json:"face_value"`
	PaidDate   *time.Time      `json:"paid_date,omitempty"`
	PaidValue  decimal.Decimal `json:"paid_value"`
	Interest   decimal.Decimal `json:"interest"`
	Fine       decimal.Decimal `json:"fine"`
	Discount   decimal.Decimal `json:"discount"`
	Version    int             `json:"version"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// EffectiveValue is the amount actually owed: face value plus interest and
// fine, minus discount.
func (i *Installment) EffectiveValue() decimal.Decimal {
	return i.FaceValue.Add(i.Interest).Add(i.Fine).Sub(i.Discount)
}

// Settled reports whether the installment has been paid.
func (i *Installment) Settled() bool {
	return i.PaidDate != nil
}

// DerivedStatus classifies the installment relative to today.
func (i *Installment) DerivedStatus(today time.Time) string {
	if i.PaidDate != nil {
		if i.PaidDate.After(i.DueDate) {
			return InstallmentPaidLate
		}
		return InstallmentOnTime
	}
	if i.DueDate.Before(today.Truncate(24 * time.Hour)) {
		return InstallmentOverdue
	}
	return InstallmentOpen
}
