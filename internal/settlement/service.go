package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/models"
)

// ErrAlreadySettled is returned when settling an installment that already
// has a paid date. Exactly one of two concurrent settle calls can win.
var ErrAlreadySettled = errors.New("installment already settled")

// ErrHasSettledInstallments blocks deleting a contract or quote while any
// of its installments is settled.
var ErrHasSettledInstallments = errors.New("parent has settled installments")

// ErrInvalidPayment is returned for non-positive paid values or adjustments
// that would push the effective value negative.
var ErrInvalidPayment = errors.New("invalid payment")

// ErrAllocationsExceedValue is returned when requested prepayment
// allocations sum to more than the installment's effective value.
var ErrAllocationsExceedValue = errors.New("allocations exceed effective value")

// InstallmentRepo is the minimal installment repository for settlement.
type InstallmentRepo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (*models.Installment, error)
	UpdateSettlementTx(ctx context.Context, tx pgx.Tx, inst *models.Installment) error
	ListSettledByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error)
	DeleteUnsettledByContractTx(ctx context.Context, tx pgx.Tx, tenantID, contractID uuid.UUID) (int64, error)
}

// ContractRepo is the minimal contract repository for settlement.
type ContractRepo interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) error
}

// Allocator consumes prepayment balance inside the settlement transaction.
type Allocator interface {
	Allocate(ctx context.Context, tx pgx.Tx, tenantID, accountID uuid.UUID, amount decimal.Decimal) error
}

// LedgerWriter records the cash leg of a settlement.
type LedgerWriter interface {
	InsertTx(ctx context.Context, tx pgx.Tx, row *models.LedgerRow) error
}

// Service settles installments: applies interest/fine/discount, consumes
// prepayment balance, and emits the ledger row for whatever cash actually
// moved. All state changes of one settle call share one transaction.
type Service struct {
	Installments InstallmentRepo
	Contracts    ContractRepo
	Allocator    Allocator
	Ledger       LedgerWriter
}

func NewService(installments InstallmentRepo, contracts ContractRepo, allocator Allocator, ledger LedgerWriter) *Service {
	return &Service{Installments: installments, Contracts: contracts, Allocator: allocator, Ledger: ledger}
}

// Allocation is one requested prepayment consumption within a settlement.
type Allocation struct {
	PrepaymentID uuid.UUID       `json:"prepayment_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type SettleRequest struct {
	TenantID      uuid.UUID
	InstallmentID uuid.UUID
	PaidDate      time.Time
	PaidValue     decimal.Decimal
	Interest      decimal.Decimal
	Fine          decimal.Decimal
	Discount      decimal.Decimal
	BankAccountID uuid.UUID
	Allocations   []Allocation
}

type SettleResult struct {
	Installment *models.Installment `json:"installment"`
	// LedgerRow is nil when prepayments covered the whole effective value:
	// the cash moved when the prepayment was received, not now.
	LedgerRow      *models.LedgerRow `json:"ledger_row,omitempty"`
	AllocatedTotal decimal.Decimal   `json:"allocated_total"`
}

// Settle marks one installment paid. Order inside the transaction: lock the
// installment, consume every requested prepayment allocation, write the
// adjusted installment, then the ledger row for the cash remainder. Any
// failure rolls the whole thing back.
func (s *Service) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	if !req.PaidValue.IsPositive() {
		return nil, fmt.Errorf("%w: paid value %s must be positive", ErrInvalidPayment, req.PaidValue)
	}
	if req.Interest.IsNegative() || req.Fine.IsNegative() || req.Discount.IsNegative() {
		return nil, fmt.Errorf("%w: interest, fine and discount must not be negative", ErrInvalidPayment)
	}

	tx, err := s.Installments.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	inst, err := s.Installments.GetByIDForUpdate(ctx, tx, req.TenantID, req.InstallmentID)
	if err != nil {
		return nil, err
	}
	if inst.Settled() {
		return nil, fmt.Errorf("%w: installment %s paid on %s",
			ErrAlreadySettled, inst.ID, inst.PaidDate.Format("2006-01-02"))
	}

	inst.Interest = req.Interest
	inst.Fine = req.Fine
	inst.Discount = req.Discount
	effective := inst.EffectiveValue()
	if effective.IsNegative() {
		return nil, fmt.Errorf("%w: discount %s exceeds face value plus adjustments on installment %s",
			ErrInvalidPayment, req.Discount, inst.ID)
	}

	allocated := decimal.Zero
	for _, a := range req.Allocations {
		allocated = allocated.Add(a.Amount)
	}
	if allocated.GreaterThan(effective) {
		return nil, fmt.Errorf("%w: allocations total %s, effective value %s on installment %s",
			ErrAllocationsExceedValue, allocated, effective, inst.ID)
	}

	for _, a := range req.Allocations {
		if err := s.Allocator.Allocate(ctx, tx, req.TenantID, a.PrepaymentID, a.Amount); err != nil {
			return nil, err
		}
	}

	paidDate := req.PaidDate
	inst.PaidDate = &paidDate
	inst.PaidValue = req.PaidValue
	if err := s.Installments.UpdateSettlementTx(ctx, tx, inst); err != nil {
		return nil, err
	}

	result := &SettleResult{Installment: inst, AllocatedTotal: allocated}

	if remainder := effective.Sub(allocated); !remainder.IsZero() {
		contract, err := s.Contracts.GetByID(ctx, req.TenantID, inst.ContractID)
		if err != nil {
			return nil, err
		}
		signed := remainder
		if contract.Direction == models.DirectionPayable {
			signed = remainder.Neg()
		}
		row := &models.LedgerRow{
			ID:             uuid.New(),
			TenantID:       req.TenantID,
			BankAccountID:  req.BankAccountID,
			Date:           req.PaidDate,
			Amount:         signed,
			Description:    fmt.Sprintf("settlement of installment %d/%s", inst.Sequence, contract.Description),
			Origin:         models.LedgerOriginSettlement,
			Reconciliation: models.LedgerUnreconciled,
			InstallmentID:  &inst.ID,
		}
		if err := s.Ledger.InsertTx(ctx, tx, row); err != nil {
			return nil, err
		}
		result.LedgerRow = row
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteParent removes a contract or quote and its schedule, refusing while
// any installment is settled. The error names the blocking sequence numbers.
// The delete only touches unsettled rows, so a settlement committing after
// the precheck aborts the whole transaction instead of being erased.
func (s *Service) DeleteParent(ctx context.Context, tenantID, contractID uuid.UUID) error {
	settled, err := s.Installments.ListSettledByContract(ctx, tenantID, contractID)
	if err != nil {
		return err
	}
	if len(settled) > 0 {
		seqs := make([]int, len(settled))
		for i, inst := range settled {
			seqs[i] = inst.Sequence
		}
		return fmt.Errorf("%w: contract %s, settled installments %v", ErrHasSettledInstallments, contractID, seqs)
	}

	tx, err := s.Installments.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	remaining, err := s.Installments.DeleteUnsettledByContractTx(ctx, tx, tenantID, contractID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return fmt.Errorf("%w: contract %s, %d installments settled concurrently",
			ErrHasSettledInstallments, contractID, remaining)
	}
	if err := s.Contracts.DeleteTx(ctx, tx, tenantID, contractID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
