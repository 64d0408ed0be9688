package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/models"
)

// ErrReconciled is returned when mutating a reconciled row. Reconciled rows
// are immutable.
var ErrReconciled = errors.New("ledger row already reconciled")

// ErrZeroAmount is returned for manual rows with no value.
var ErrZeroAmount = errors.New("amount must not be zero")

// Repo is the minimal ledger repository for the service.
type Repo interface {
	Insert(ctx context.Context, row *models.LedgerRow) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.LedgerRow, error)
	ListByAccountRange(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*models.LedgerRow, error)
	SetReconciliation(ctx context.Context, tenantID, id uuid.UUID, from, to string) error
}

type Service struct {
	repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{repo: repo}
}

// AddManual records a hand-entered cash movement. Amount keeps its sign:
// positive inflow, negative outflow.
func (s *Service) AddManual(ctx context.Context, tenantID, bankAccountID uuid.UUID, date time.Time, amount decimal.Decimal, description string) (*models.LedgerRow, error) {
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}
	row := &models.LedgerRow{
		ID:             uuid.New(),
		TenantID:       tenantID,
		BankAccountID:  bankAccountID,
		Date:           date,
		Amount:         amount,
		Description:    description,
		Origin:         models.LedgerOriginManual,
		Reconciliation: models.LedgerUnreconciled,
	}
	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// Reconcile marks a row reconciled. One-way: there is no unreconcile.
func (s *Service) Reconcile(ctx context.Context, tenantID, id uuid.UUID) error {
	row, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if row.Reconciliation == models.LedgerReconciled {
		return fmt.Errorf("%w: row %s", ErrReconciled, id)
	}
	return s.repo.SetReconciliation(ctx, tenantID, id, models.LedgerUnreconciled, models.LedgerReconciled)
}

// List returns rows for one bank account within [from, to] in chronological
// order.
func (s *Service) List(ctx context.Context, tenantID, bankAccountID uuid.UUID, from, to time.Time) ([]*models.LedgerRow, error) {
	return s.repo.ListByAccountRange(ctx, tenantID, bankAccountID, from, to)
}
