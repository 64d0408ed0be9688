package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/contaflux/backend/internal/models"
)

type mockRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.LedgerRow
}

func newMockRepo() *mockRepo {
	return &mockRepo{rows: make(map[uuid.UUID]*models.LedgerRow)}
}

func (m *mockRepo) Insert(_ context.Context, row *models.LedgerRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *row
	m.rows[row.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, _, id uuid.UUID) (*models.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("row %s not found", id)
	}
	cp := *row
	return &cp, nil
}

func (m *mockRepo) ListByAccountRange(_ context.Context, _, bankAccountID uuid.UUID, from, to time.Time) ([]*models.LedgerRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.LedgerRow
	for _, row := range m.rows {
		if row.BankAccountID == bankAccountID && !row.Date.Before(from) && !row.Date.After(to) {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) SetReconciliation(_ context.Context, _, id uuid.UUID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok || row.Reconciliation != from {
		return fmt.Errorf("row %s is not %s", id, from)
	}
	row.Reconciliation = to
	return nil
}

func TestAddManual(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	tenant, bank := uuid.New(), uuid.New()
	date := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)

	row, err := svc.AddManual(context.Background(), tenant, bank, date, decimal.NewFromInt(-75), "office rent")
	if err != nil {
		t.Fatalf("AddManual: %v", err)
	}
	if row.Origin != models.LedgerOriginManual {
		t.Errorf("origin: got %s, want manual", row.Origin)
	}
	if row.Reconciliation != models.LedgerUnreconciled {
		t.Error("new rows start unreconciled")
	}

	if _, err := svc.AddManual(context.Background(), tenant, bank, date, decimal.Zero, "noop"); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("zero amount: expected ErrZeroAmount, got %v", err)
	}
}

func TestReconcileIsOneWay(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	tenant, bank := uuid.New(), uuid.New()

	row, err := svc.AddManual(context.Background(), tenant, bank, time.Now(), decimal.NewFromInt(10), "x")
	if err != nil {
		t.Fatalf("AddManual: %v", err)
	}
	if err := svc.Reconcile(context.Background(), tenant, row.ID); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if err := svc.Reconcile(context.Background(), tenant, row.ID); !errors.Is(err, ErrReconciled) {
		t.Errorf("second reconcile: expected ErrReconciled, got %v", err)
	}
}
