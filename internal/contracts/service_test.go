package contracts

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/activation"
	"github.com/contaflux/backend/internal/models"
	"github.com/contaflux/backend/internal/pgtest"
	"github.com/contaflux/backend/internal/schedule"
	"github.com/contaflux/backend/internal/settlement"
)

// ---------------------------------------------------------------------------
// In-memory mocks. The schedule package is exercised for real; only the
// repositories and the job insert are faked.
// ---------------------------------------------------------------------------

type mockContractRepo struct {
	contracts map[uuid.UUID]*models.Contract
	statusOps []string
}

func newMockContractRepo() *mockContractRepo {
	return &mockContractRepo{contracts: make(map[uuid.UUID]*models.Contract)}
}

func (m *mockContractRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return pgtest.NoopTx{}, nil
}

func (m *mockContractRepo) Create(ctx context.Context, c *models.Contract) error {
	cp := *c
	m.contracts[c.ID] = &cp
	return nil
}

func (m *mockContractRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Contract, error) {
	c, ok := m.contracts[id]
	if !ok || c.TenantID != tenantID {
		return nil, fmt.Errorf("contract %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockContractRepo) Update(ctx context.Context, c *models.Contract) error {
	if _, ok := m.contracts[c.ID]; !ok {
		return fmt.Errorf("contract %s not found", c.ID)
	}
	cp := *c
	m.contracts[c.ID] = &cp
	return nil
}

func (m *mockContractRepo) UpdateStatusTx(ctx context.Context, tx pgx.Tx, tenantID, id uuid.UUID, from, to string) error {
	c, ok := m.contracts[id]
	if !ok || c.TenantID != tenantID || c.Status != from {
		return fmt.Errorf("contract %s not in status %s", id, from)
	}
	c.Status = to
	m.statusOps = append(m.statusOps, from+"->"+to)
	return nil
}

func (m *mockContractRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Contract, error) {
	var out []*models.Contract
	for _, c := range m.contracts {
		if c.TenantID == tenantID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockInstallmentRepo struct {
	byContract map[uuid.UUID][]models.Installment
	settled    map[uuid.UUID][]*models.Installment
	deletes    int
	onDelete   func()
}

func newMockInstallmentRepo() *mockInstallmentRepo {
	return &mockInstallmentRepo{
		byContract: make(map[uuid.UUID][]models.Installment),
		settled:    make(map[uuid.UUID][]*models.Installment),
	}
}

func (m *mockInstallmentRepo) InsertBatchTx(ctx context.Context, tx pgx.Tx, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	cid := installments[0].ContractID
	m.byContract[cid] = append(m.byContract[cid], installments...)
	return nil
}

func (m *mockInstallmentRepo) DeleteUnsettledByContractTx(ctx context.Context, tx pgx.Tx, tenantID, contractID uuid.UUID) (int64, error) {
	if m.onDelete != nil {
		m.onDelete()
	}
	m.deletes++
	delete(m.byContract, contractID)
	return int64(len(m.settled[contractID])), nil
}

func (m *mockInstallmentRepo) ListByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error) {
	rows := m.byContract[contractID]
	out := make([]*models.Installment, len(rows))
	for i := range rows {
		cp := rows[i]
		out[i] = &cp
	}
	return out, nil
}

func (m *mockInstallmentRepo) ListSettledByContract(ctx context.Context, tenantID, contractID uuid.UUID) ([]*models.Installment, error) {
	return m.settled[contractID], nil
}

type jobCapture struct {
	inserted []activation.GenerateScheduleArgs
	failWith error
}

func (j *jobCapture) insertTx(ctx context.Context, tx pgx.Tx, args activation.GenerateScheduleArgs) error {
	if j.failWith != nil {
		return j.failWith
	}
	j.inserted = append(j.inserted, args)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validCreateRequest(tenantID uuid.UUID) CreateRequest {
	return CreateRequest{
		TenantID:       tenantID,
		CounterpartyID: uuid.New(),
		Kind:           models.ContractKindContract,
		Direction:      models.DirectionReceivable,
		Description:    "monthly retainer",
		StartDate:      date(2025, time.January, 15),
		EndDate:        date(2025, time.June, 15),
		FirstDueDate:   date(2025, time.February, 1),
		Periodicity:    schedule.PeriodicityMensal,
		MonthlyValue:   decimal.NewFromInt(1000),
	}
}

func TestCreateStoresDraft(t *testing.T) {
	repo := newMockContractRepo()
	svc := NewService(repo, newMockInstallmentRepo(), (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != models.ContractStatusDraft {
		t.Errorf("status = %s, want %s", c.Status, models.ContractStatusDraft)
	}
	stored, err := repo.GetByID(context.Background(), tenantID, c.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.MonthlyValue.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("monthly value = %s, want 1000", stored.MonthlyValue)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMockContractRepo(), newMockInstallmentRepo(), (&jobCapture{}).insertTx)
	tenantID := uuid.New()

	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		wantErr error
	}{
		{
			name:    "end before start",
			mutate:  func(r *CreateRequest) { r.EndDate = r.StartDate.AddDate(0, 0, -1) },
			wantErr: schedule.ErrInvalidRange,
		},
		{
			name:    "unknown periodicity",
			mutate:  func(r *CreateRequest) { r.Periodicity = "weekly" },
			wantErr: schedule.ErrInvalidPeriodicity,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest(tenantID)
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	req := validCreateRequest(tenantID)
	req.Kind = "invoice"
	if _, err := svc.Create(context.Background(), req); err == nil {
		t.Error("Create accepted invalid kind")
	}
	req = validCreateRequest(tenantID)
	req.MonthlyValue = decimal.Zero
	if _, err := svc.Create(context.Background(), req); err == nil {
		t.Error("Create accepted zero monthly value")
	}
}

func TestActivateFlipsStatusAndEnqueues(t *testing.T) {
	repo := newMockContractRepo()
	jobs := &jobCapture{}
	svc := NewService(repo, newMockInstallmentRepo(), jobs.insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Activate(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	got, _ := repo.GetByID(context.Background(), tenantID, c.ID)
	if got.Status != models.ContractStatusActive {
		t.Errorf("status = %s, want %s", got.Status, models.ContractStatusActive)
	}
	if len(jobs.inserted) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(jobs.inserted))
	}
	if jobs.inserted[0].ContractID != c.ID || jobs.inserted[0].TenantID != tenantID {
		t.Errorf("job args = %+v", jobs.inserted[0])
	}

	// A second activation must fail: the contract is no longer draft.
	if err := svc.Activate(context.Background(), tenantID, c.ID); err == nil {
		t.Error("Activate succeeded on an already active contract")
	}
}

func TestActivateEnqueueFailure(t *testing.T) {
	repo := newMockContractRepo()
	jobs := &jobCapture{failWith: errors.New("queue unavailable")}
	svc := NewService(repo, newMockInstallmentRepo(), jobs.insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Activate(context.Background(), tenantID, c.ID); err == nil {
		t.Fatal("Activate succeeded despite failed enqueue")
	}
}

func TestMaterializeScheduleGenerates(t *testing.T) {
	repo := newMockContractRepo()
	installments := newMockInstallmentRepo()
	svc := NewService(repo, installments, (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.MaterializeSchedule(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("MaterializeSchedule: %v", err)
	}

	rows, _ := installments.ListByContract(context.Background(), tenantID, c.ID)
	if len(rows) != 6 {
		t.Fatalf("generated %d installments, want 6", len(rows))
	}
	if !rows[0].DueDate.Equal(date(2025, time.February, 1)) {
		t.Errorf("first due date = %s", rows[0].DueDate.Format("2006-01-02"))
	}
	if !rows[0].FaceValue.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("face value = %s, want 1000", rows[0].FaceValue)
	}

	// Running it again replaces the schedule instead of appending.
	if err := svc.MaterializeSchedule(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("second MaterializeSchedule: %v", err)
	}
	rows, _ = installments.ListByContract(context.Background(), tenantID, c.ID)
	if len(rows) != 6 {
		t.Errorf("after rerun: %d installments, want 6", len(rows))
	}
	if installments.deletes != 2 {
		t.Errorf("deletes = %d, want 2", installments.deletes)
	}
}

func TestMaterializeScheduleRefusedAfterSettlement(t *testing.T) {
	repo := newMockContractRepo()
	installments := newMockInstallmentRepo()
	svc := NewService(repo, installments, (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	now := time.Now()
	installments.settled[c.ID] = []*models.Installment{{Sequence: 1, PaidDate: &now}}

	err = svc.MaterializeSchedule(context.Background(), tenantID, c.ID)
	if !errors.Is(err, settlement.ErrHasSettledInstallments) {
		t.Errorf("err = %v, want ErrHasSettledInstallments", err)
	}
}

func TestMaterializeScheduleAbortsWhenSettlementWinsRace(t *testing.T) {
	repo := newMockContractRepo()
	installments := newMockInstallmentRepo()
	svc := NewService(repo, installments, (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.MaterializeSchedule(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("MaterializeSchedule: %v", err)
	}

	// A settlement commits between the precheck and the in-transaction
	// delete. The surviving settled row must abort the regeneration.
	now := time.Now()
	installments.onDelete = func() {
		installments.settled[c.ID] = []*models.Installment{{Sequence: 3, PaidDate: &now}}
	}

	err = svc.MaterializeSchedule(context.Background(), tenantID, c.ID)
	if !errors.Is(err, settlement.ErrHasSettledInstallments) {
		t.Fatalf("err = %v, want ErrHasSettledInstallments", err)
	}
	if rows, _ := installments.ListByContract(context.Background(), tenantID, c.ID); len(rows) != 0 {
		t.Errorf("aborted regeneration left %d unpaid installments", len(rows))
	}
}

func TestUpdateRegeneratesActiveSchedule(t *testing.T) {
	repo := newMockContractRepo()
	installments := newMockInstallmentRepo()
	svc := NewService(repo, installments, (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Activate(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := svc.MaterializeSchedule(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("MaterializeSchedule: %v", err)
	}

	updated, err := svc.Update(context.Background(), UpdateRequest{
		TenantID:     tenantID,
		ContractID:   c.ID,
		Description:  "extended retainer",
		StartDate:    date(2025, time.January, 15),
		EndDate:      date(2025, time.December, 15),
		FirstDueDate: date(2025, time.February, 1),
		Periodicity:  schedule.PeriodicityMensal,
		MonthlyValue: decimal.NewFromInt(1200),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "extended retainer" {
		t.Errorf("description = %q", updated.Description)
	}

	rows, _ := installments.ListByContract(context.Background(), tenantID, c.ID)
	if len(rows) != 12 {
		t.Fatalf("after update: %d installments, want 12", len(rows))
	}
	if !rows[0].FaceValue.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("face value = %s, want 1200", rows[0].FaceValue)
	}
}

func TestUpdateBlockedBySettledInstallments(t *testing.T) {
	repo := newMockContractRepo()
	installments := newMockInstallmentRepo()
	svc := NewService(repo, installments, (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	now := time.Now()
	installments.settled[c.ID] = []*models.Installment{
		{Sequence: 1, PaidDate: &now},
		{Sequence: 3, PaidDate: &now},
	}

	req := UpdateRequest{
		TenantID:     tenantID,
		ContractID:   c.ID,
		Description:  "new terms",
		StartDate:    c.StartDate,
		EndDate:      c.EndDate,
		FirstDueDate: c.FirstDueDate,
		Periodicity:  c.Periodicity,
		MonthlyValue: c.MonthlyValue,
	}
	_, err = svc.Update(context.Background(), req)
	if !errors.Is(err, settlement.ErrHasSettledInstallments) {
		t.Fatalf("err = %v, want ErrHasSettledInstallments", err)
	}
	// Nothing was persisted.
	got, _ := repo.GetByID(context.Background(), tenantID, c.ID)
	if got.Description != "monthly retainer" {
		t.Errorf("description changed to %q despite rejection", got.Description)
	}
}

func TestListInstallmentsDerivesStatus(t *testing.T) {
	repo := newMockContractRepo()
	installments := newMockInstallmentRepo()
	svc := NewService(repo, installments, (&jobCapture{}).insertTx)

	tenantID := uuid.New()
	c, err := svc.Create(context.Background(), validCreateRequest(tenantID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.MaterializeSchedule(context.Background(), tenantID, c.ID); err != nil {
		t.Fatalf("MaterializeSchedule: %v", err)
	}

	today := date(2025, time.April, 10)
	views, err := svc.ListInstallments(context.Background(), tenantID, c.ID, today)
	if err != nil {
		t.Fatalf("ListInstallments: %v", err)
	}
	if len(views) != 6 {
		t.Fatalf("got %d views, want 6", len(views))
	}
	// Due Feb 1, Mar 1, Apr 1 are overdue on Apr 10; May 1 onward still open.
	for _, v := range views {
		want := "open"
		if v.DueDate.Before(today) {
			want = "overdue"
		}
		if v.Status != want {
			t.Errorf("seq %d due %s: status = %s, want %s",
				v.Sequence, v.DueDate.Format("2006-01-02"), v.Status, want)
		}
	}
}
