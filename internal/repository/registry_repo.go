package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contaflux/backend/internal/models"
)

type BankAccountRepo struct {
	pool *pgxpool.Pool
}

func NewBankAccountRepo(pool *pgxpool.Pool) *BankAccountRepo {
	return &BankAccountRepo{pool: pool}
}

func (r *BankAccountRepo) Create(ctx context.Context, b *models.BankAccount) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO bank_accounts (id, tenant_id, name, opening_balance)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, b.ID, b.TenantID, b.Name, b.OpeningBalance).Scan(&b.CreatedAt)
}

func (r *BankAccountRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.BankAccount, error) {
	var b models.BankAccount
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, opening_balance, created_at
		FROM bank_accounts WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&b.ID, &b.TenantID, &b.Name, &b.OpeningBalance, &b.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &b, nil
}

func (r *BankAccountRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.BankAccount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, opening_balance, created_at
		FROM bank_accounts WHERE tenant_id = $1 ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.BankAccount
	for rows.Next() {
		var b models.BankAccount
		if err := rows.Scan(&b.ID, &b.TenantID, &b.Name, &b.OpeningBalance, &b.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}

type CounterpartyRepo struct {
	pool *pgxpool.Pool
}

func NewCounterpartyRepo(pool *pgxpool.Pool) *CounterpartyRepo {
	return &CounterpartyRepo{pool: pool}
}

func (r *CounterpartyRepo) Create(ctx context.Context, c *models.Counterparty) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO counterparties (id, tenant_id, name, document, kind, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, c.ID, c.TenantID, c.Name, c.Document, c.Kind, c.Email).Scan(&c.CreatedAt)
}

func (r *CounterpartyRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Counterparty, error) {
	var c models.Counterparty
	err := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, document, kind, email, created_at
		FROM counterparties WHERE id = $1 AND tenant_id = $2
	`, id, tenantID).Scan(&c.ID, &c.TenantID, &c.Name, &c.Document, &c.Kind, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &c, nil
}

func (r *CounterpartyRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Counterparty, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, tenant_id, name, document, kind, email, created_at
		FROM counterparties WHERE tenant_id = $1 ORDER BY name
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*models.Counterparty
	for rows.Next() {
		var c models.Counterparty
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Document, &c.Kind, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &c)
	}
	return list, rows.Err()
}

func (r *CounterpartyRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM counterparties WHERE id = $1 AND tenant_id = $2", id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: counterparty %s", ErrNotFound, id)
	}
	return nil
}
