package registry

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/models"
)

// ErrInvalidKind is returned for a counterparty kind outside
// customer/supplier.
var ErrInvalidKind = errors.New("invalid counterparty kind")

// BankAccounts is the bank account repository used by the service.
type BankAccounts interface {
	Create(ctx context.Context, b *models.BankAccount) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.BankAccount, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.BankAccount, error)
}

// Counterparties is the counterparty repository used by the service.
type Counterparties interface {
	Create(ctx context.Context, c *models.Counterparty) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Counterparty, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Counterparty, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type Service interface {
	CreateBankAccount(ctx context.Context, tenantID uuid.UUID, name string, openingBalance decimal.Decimal) (*models.BankAccount, error)
	GetBankAccount(ctx context.Context, tenantID, id uuid.UUID) (*models.BankAccount, error)
	ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]*models.BankAccount, error)
	CreateCounterparty(ctx context.Context, tenantID uuid.UUID, name, document, kind, email string) (*models.Counterparty, error)
	GetCounterparty(ctx context.Context, tenantID, id uuid.UUID) (*models.Counterparty, error)
	ListCounterparties(ctx context.Context, tenantID uuid.UUID) ([]*models.Counterparty, error)
	DeleteCounterparty(ctx context.Context, tenantID, id uuid.UUID) error
}

type service struct {
	accounts       BankAccounts
	counterparties Counterparties
}

func NewService(accounts BankAccounts, counterparties Counterparties) *service {
	return &service{accounts: accounts, counterparties: counterparties}
}

var _ Service = (*service)(nil)

func (s *service) CreateBankAccount(ctx context.Context, tenantID uuid.UUID, name string, openingBalance decimal.Decimal) (*models.BankAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("bank account name is required")
	}
	b := &models.BankAccount{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Name:           name,
		OpeningBalance: openingBalance,
	}
	if err := s.accounts.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *service) GetBankAccount(ctx context.Context, tenantID, id uuid.UUID) (*models.BankAccount, error) {
	return s.accounts.GetByID(ctx, tenantID, id)
}

func (s *service) ListBankAccounts(ctx context.Context, tenantID uuid.UUID) ([]*models.BankAccount, error) {
	return s.accounts.ListByTenant(ctx, tenantID)
}

func (s *service) CreateCounterparty(ctx context.Context, tenantID uuid.UUID, name, document, kind, email string) (*models.Counterparty, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("counterparty name is required")
	}
	if kind != models.CounterpartyCustomer && kind != models.CounterpartySupplier {
		return nil, ErrInvalidKind
	}
	c := &models.Counterparty{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Document: strings.TrimSpace(document),
		Kind:     kind,
		Email:    strings.TrimSpace(email),
	}
	if err := s.counterparties.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) GetCounterparty(ctx context.Context, tenantID, id uuid.UUID) (*models.Counterparty, error) {
	return s.counterparties.GetByID(ctx, tenantID, id)
}

func (s *service) ListCounterparties(ctx context.Context, tenantID uuid.UUID) ([]*models.Counterparty, error) {
	return s.counterparties.ListByTenant(ctx, tenantID)
}

func (s *service) DeleteCounterparty(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.counterparties.Delete(ctx, tenantID, id)
}
