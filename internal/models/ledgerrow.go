package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger row origins.
const (
	LedgerOriginPrepayment = "prepayment"
	LedgerOriginSettlement = "settlement"
	LedgerOriginManual     = "manual"
)

// Reconciliation states. A reconciled row is immutable.
const (
	LedgerReconciled   = "reconciled"
	LedgerUnreconciled = "unreconciled"
)

// LedgerRow is one cash movement on a bank account. Amount is signed:
// positive for inflows, negative for outflows.
type LedgerRow struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	BankAccountID  uuid.UUID       `json:"bank_account_id"`
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	Origin         string          `json:"origin"`
	Reconciliation string          `json:"reconciliation"`
	InstallmentID  *uuid.UUID      `json:"installment_id,omitempty"`
	PrepaymentID   *uuid.UUID      `json:"prepayment_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
