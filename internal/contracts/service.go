package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/activation"
	"github.com/contaflux/backend/internal/models"
	"github.com/contaflux/backend/internal/schedule"
	"github.com/contaflux/backend/internal/settlement"
)

// ErrInvalidContract is returned for a bad kind, direction or value.
var ErrInvalidContract = errors.New("invalid contract")

// ContractRepo is the minimal contract repository for the service.
type ContractRepo interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Create(ctx context.Context, c *models.Contract) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error)
	Update(ctx context.Context, c *models.Contract) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID, from, to string) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Contract, error)
}

// InstallmentRepo is the minimal installment repository for the service.
type InstallmentRepo interface {
	InsertBatchTx(ctx context.Context, tx pgx.Tx, installments []models.Installment) error
	DeleteUnsettledByContractTx(ctx context.Context, tx pgx.Tx, tenantID, contractID uuid.UUID) (int64, error)
	ListByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error)
	ListSettledByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error)
}

// InsertGenerateScheduleTxFunc enqueues a schedule generation job within the
// given transaction. Provided by main using river.Client.InsertTx.
type InsertGenerateScheduleTxFunc func(ctx context.Context, tx pgx.Tx, args activation.GenerateScheduleArgs) error

type Service struct {
	contracts              ContractRepo
	installments           InstallmentRepo
	insertGenerateSchedule InsertGenerateScheduleTxFunc
}

// NewService creates a contracts service. insertGenerateSchedule is
// typically a closure over river.Client.InsertTx.
func NewService(contracts ContractRepo, installments InstallmentRepo, insertGenerateSchedule InsertGenerateScheduleTxFunc) *Service {
	return &Service{contracts: contracts, installments: installments, insertGenerateSchedule: insertGenerateSchedule}
}

var _ activation.ContractService = (*Service)(nil)

type CreateRequest struct {
	TenantID       uuid.UUID
	CounterpartyID uuid.UUID
	Kind           string
	Direction      string
	Description    string
	StartDate      time.Time
	EndDate        time.Time
	FirstDueDate   time.Time
	Periodicity    string
	MonthlyValue   decimal.Decimal
}

// Create stores a draft contract or quote. The schedule is only generated
// on activation.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Contract, error) {
	if req.Kind != models.ContractKindContract && req.Kind != models.ContractKindQuote {
		return nil, fmt.Errorf("%w: kind %q", ErrInvalidContract, req.Kind)
	}
	if req.Direction != models.DirectionReceivable && req.Direction != models.DirectionPayable {
		return nil, fmt.Errorf("%w: direction %q", ErrInvalidContract, req.Direction)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s", schedule.ErrInvalidRange,
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	}
	if _, err := schedule.Multiplier(req.Periodicity); err != nil {
		return nil, err
	}
	if !req.MonthlyValue.IsPositive() {
		return nil, fmt.Errorf("%w: monthly value %s must be positive", ErrInvalidContract, req.MonthlyValue)
	}
	c := &models.Contract{
		ID:             uuid.New(),
		TenantID:       req.TenantID,
		CounterpartyID: req.CounterpartyID,
		Kind:           req.Kind,
		Direction:      req.Direction,
		Description:    req.Description,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		FirstDueDate:   req.FirstDueDate,
		Periodicity:    req.Periodicity,
		MonthlyValue:   req.MonthlyValue,
		Status:         models.ContractStatusDraft,
	}
	if err := s.contracts.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Activate flips a draft contract to active and enqueues schedule
// generation in the same transaction, so the job exists iff the status
// change committed.
func (s *Service) Activate(ctx context.Context, tenantID, contractID uuid.UUID) error {
	c, err := s.contracts.GetByID(ctx, tenantID, contractID)
	if err != nil {
		return err
	}
	tx, err := s.contracts.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if err := s.contracts.UpdateStatusTx(ctx, tx, tenantID, c.ID, models.ContractStatusDraft, models.ContractStatusActive); err != nil {
		return err
	}
	if err := s.insertGenerateSchedule(ctx, tx, activation.GenerateScheduleArgs{
		TenantID:   tenantID,
		ContractID: c.ID,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type UpdateRequest struct {
	TenantID     uuid.UUID
	ContractID   uuid.UUID
	Description  string
	StartDate    time.Time
	EndDate      time.Time
	FirstDueDate time.Time
	Periodicity  string
	MonthlyValue decimal.Decimal
}

// Update edits a contract's terms and regenerates its schedule from
// scratch. Refused once any installment is settled: partial regeneration is
// not supported.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*models.Contract, error) {
	c, err := s.contracts.GetByID(ctx, req.TenantID, req.ContractID)
	if err != nil {
		return nil, err
	}
	settled, err := s.installments.ListSettledByContract(ctx, req.TenantID, c.ID)
	if err != nil {
		return nil, err
	}
	if len(settled) > 0 {
		seqs := make([]int, len(settled))
		for i, inst := range settled {
			seqs[i] = inst.Sequence
		}
		return nil, fmt.Errorf("%w: contract %s, settled installments %v",
			settlement.ErrHasSettledInstallments, c.ID, seqs)
	}
	if req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: start %s, end %s", schedule.ErrInvalidRange,
			req.StartDate.Format("2006-01-02"), req.EndDate.Format("2006-01-02"))
	}
	if _, err := schedule.Multiplier(req.Periodicity); err != nil {
		return nil, err
	}

	c.Description = req.Description
	c.StartDate = req.StartDate
	c.EndDate = req.EndDate
	c.FirstDueDate = req.FirstDueDate
	c.Periodicity = req.Periodicity
	c.MonthlyValue = req.MonthlyValue
	if err := s.contracts.Update(ctx, c); err != nil {
		return nil, err
	}
	if c.Status == models.ContractStatusActive {
		if err := s.MaterializeSchedule(ctx, req.TenantID, c.ID); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MaterializeSchedule implements activation.ContractService: it expands the
// contract into installments, replacing any unsettled schedule. Delete and
// recreate keeps the job idempotent across River retries. The settled check
// repeats inside the transaction: the delete skips settled rows, so a
// settlement that commits after the precheck aborts the regeneration
// instead of being recreated unpaid.
func (s *Service) MaterializeSchedule(ctx context.Context, tenantID, contractID uuid.UUID) error {
	c, err := s.contracts.GetByID(ctx, tenantID, contractID)
	if err != nil {
		return err
	}
	settled, err := s.installments.ListSettledByContract(ctx, tenantID, contractID)
	if err != nil {
		return err
	}
	if len(settled) > 0 {
		return fmt.Errorf("%w: contract %s", settlement.ErrHasSettledInstallments, contractID)
	}
	installments, err := schedule.Generate(schedule.Params{
		TenantID:     tenantID,
		ContractID:   c.ID,
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		FirstDueDate: c.FirstDueDate,
		Periodicity:  c.Periodicity,
		MonthlyValue: c.MonthlyValue,
	})
	if err != nil {
		return err
	}

	tx, err := s.contracts.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	remaining, err := s.installments.DeleteUnsettledByContractTx(ctx, tx, tenantID, contractID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return fmt.Errorf("%w: contract %s, %d installments settled concurrently",
			settlement.ErrHasSettledInstallments, contractID, remaining)
	}
	if err := s.installments.InsertBatchTx(ctx, tx, installments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error) {
	return s.contracts.GetByID(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]*models.Contract, error) {
	return s.contracts.ListByTenant(ctx, tenantID)
}

// InstallmentView is an installment plus its derived status.
type InstallmentView struct {
	models.Installment
	Status string `json:"status"`
}

// ListInstallments returns the schedule with each installment classified
// relative to today.
func (s *Service) ListInstallments(ctx context.Context, tenantID, contractID uuid.UUID, today time.Time) ([]InstallmentView, error) {
	installments, err := s.installments.ListByContract(ctx, tenantID, contractID)
	if err != nil {
		return nil, err
	}
	views := make([]InstallmentView, len(installments))
	for i, inst := range installments {
		views[i] = InstallmentView{Installment: *inst, Status: inst.DerivedStatus(today)}
	}
	return views, nil
}
