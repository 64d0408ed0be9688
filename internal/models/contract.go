package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Contract kinds: a recurring service contract or a sales quote. Both
// generate installment schedules the same way.
const (
	ContractKindContract = "contract"
	ContractKindQuote    = "quote"
)

const (
	ContractStatusDraft  = "draft"
	ContractStatusActive = "active"
	ContractStatusClosed = "closed"
)

// Money direction, seen from the company's books. Contracts and prepayments
// share it: receivable money comes in, payable money goes out.
const (
	DirectionReceivable = "receivable"
	DirectionPayable    = "payable"
)

type Contract struct {
	ID             uuid.UUID       `json:"id"`
	TenantID       uuid.UUID       `json:"tenant_id"`
	CounterpartyID uuid.UUID       `json:"counterparty_id"`
	Kind           string          `json:"kind"`
	Direction      string          `json:"direction"`
	Description    string          `json:"description"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	FirstDueDate   time.Time       `json:"first_due_date"`
	Periodicity    string          `json:"periodicity"`
	MonthlyValue   decimal.Decimal `json:"monthly_value"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
