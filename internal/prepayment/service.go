package prepayment

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

// ErrInsufficientBalance is returned when an allocation or return asks for
// more than the prepayment's available balance.
var ErrInsufficientBalance = errors.New("insufficient prepayment balance")

// ErrReleaseExceedsUsed is returned when a reversal would push used below zero.
var ErrReleaseExceedsUsed = errors.New("release exceeds used amount")

// ErrInvalidAmount is returned for zero or negative amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// AccountRepo is the minimal prepayment account repository for the service.
type AccountRepo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, p *models.PrepaymentAccount) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.PrepaymentAccount, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID) (*models.PrepaymentAccount, error)
	UpdateAmountsTx(ctx context.Context, tx pgx.Tx, p *models.PrepaymentAccount) error
	ListByCounterparty(ctx context.Context, tenantID, counterpartyID uuid.UUID) ([]*models.PrepaymentAccount, error)
}

// LedgerWriter is the minimal ledger interface for the return flow.
type LedgerWriter interface {
	InsertTx(ctx context.Context, tx pgx.Tx, row *models.LedgerRow) error
}

// Service tracks prepayment accounts and allocates their balance against
// installment settlements. Every mutation locks the account row first, so
// two concurrent allocations cannot both pass the balance check.
type Service struct {
	Accounts AccountRepo
	Ledger   LedgerWriter
}

func NewService(accounts AccountRepo, ledger LedgerWriter) *Service {
	return &Service{Accounts: accounts, Ledger: ledger}
}

// Open creates a prepayment account with the full amount still available.
func (s *Service) Open(ctx context.Context, tenantID, counterpartyID uuid.UUID, direction string, total decimal.Decimal) (*models.PrepaymentAccount, error) {
	if direction != models.DirectionReceivable && direction != models.DirectionPayable {
		return nil, fmt.Errorf("invalid direction %q", direction)
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("%w: total %s", ErrInvalidAmount, total)
	}
	p := &models.PrepaymentAccount{
		ID:             uuid.New(),
		TenantID:       tenantID,
		CounterpartyID: counterpartyID,
		Direction:      direction,
		TotalValue:     total,
		Status:         models.PrepaymentActive,
	}
	if err := s.Accounts.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns one prepayment account.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.PrepaymentAccount, error) {
	return s.Accounts.GetByID(ctx, tenantID, id)
}

// ListByCounterparty returns every prepayment account held with the given
// counterparty, whatever its status.
func (s *Service) ListByCounterparty(ctx context.Context, tenantID, counterpartyID uuid.UUID) ([]*models.PrepaymentAccount, error) {
	return s.Accounts.ListByCounterparty(ctx, tenantID, counterpartyID)
}

// Allocate consumes amount from the account's available balance. Call
// within the settlement transaction: the caller's rollback undoes it.
func (s *Service) Allocate(ctx context.Context, tx pgx.Tx, tenantID, accountID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: allocation of %s", ErrInvalidAmount, amount)
	}
	p, err := s.Accounts.GetByIDForUpdate(ctx, tx, tenantID, accountID)
	if err != nil {
		return err
	}
	if available := p.AvailableValue(); amount.GreaterThan(available) {
		return fmt.Errorf("%w: prepayment %s has %s available, requested %s",
			ErrInsufficientBalance, p.ID, available, amount)
	}
	p.UsedValue = p.UsedValue.Add(amount)
	p.RecomputeStatus()
	return s.Accounts.UpdateAmountsTx(ctx, tx, p)
}

// Release undoes an allocation (payment reversal), bounded so used never
// goes negative.
func (s *Service) Release(ctx context.Context, tx pgx.Tx, tenantID, accountID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: release of %s", ErrInvalidAmount, amount)
	}
	p, err := s.Accounts.GetByIDForUpdate(ctx, tx, tenantID, accountID)
	if err != nil {
		return err
	}
	if amount.GreaterThan(p.UsedValue) {
		return fmt.Errorf("%w: prepayment %s has %s used, release of %s requested",
			ErrReleaseExceedsUsed, p.ID, p.UsedValue, amount)
	}
	p.UsedValue = p.UsedValue.Sub(amount)
	p.RecomputeStatus()
	return s.Accounts.UpdateAmountsTx(ctx, tx, p)
}

// Return refunds part of the available balance through a bank account. The
// ledger row's sign is inverted relative to the account's own direction: a
// payable prepayment returns as an inflow (the supplier refunds us), a
// receivable one as an outflow (we refund the customer).
func (s *Service) Return(ctx context.Context, tenantID, accountID uuid.UUID, amount decimal.Decimal, bankAccountID uuid.UUID, date time.Time) (*models.LedgerRow, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: return of %s", ErrInvalidAmount, amount)
	}
	tx, err := s.Accounts.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	p, err := s.Accounts.GetByIDForUpdate(ctx, tx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if available := p.AvailableValue(); amount.GreaterThan(available) {
		return nil, fmt.Errorf("%w: prepayment %s has %s available, return of %s requested",
			ErrInsufficientBalance, p.ID, available, amount)
	}
	p.ReturnedValue = p.ReturnedValue.Add(amount)
	p.RecomputeStatus()
	if err := s.Accounts.UpdateAmountsTx(ctx, tx, p); err != nil {
		return nil, err
	}

	signed := amount.Neg()
	if p.Direction == models.DirectionPayable {
		signed = amount
	}
	row := &models.LedgerRow{
		ID:             uuid.New(),
		TenantID:       tenantID,
		BankAccountID:  bankAccountID,
		Date:           date,
		Amount:         signed,
		Description:    fmt.Sprintf("prepayment return (%s)", p.Direction),
		Origin:         models.LedgerOriginPrepayment,
		Reconciliation: models.LedgerUnreconciled,
		PrepaymentID:   &p.ID,
	}
	if err := s.Ledger.InsertTx(ctx, tx, row); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return row, nil
}
