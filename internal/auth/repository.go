package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contaflux/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTenantWithUser inserts the tenant and its first user atomically.
func (r *Repository) CreateTenantWithUser(ctx context.Context, companyName, email, passwordHash, name string) (*models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var u models.User
	row := tx.QueryRow(ctx, `
		INSERT INTO tenants (name) VALUES ($1)
		RETURNING id, created_at
	`, companyName)
	var tenant models.Tenant
	if err := row.Scan(&tenant.ID, &tenant.CreatedAt); err != nil {
		return nil, err
	}

	row = tx.QueryRow(ctx, `
		INSERT INTO users (tenant_id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, tenant.ID, email, name, passwordHash)
	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	u.TenantID = tenant.ID
	u.Email = email
	u.Name = name
	u.PasswordHash = passwordHash
	return &u, nil
}

// GetByEmail returns the user including the password hash for login.
// Returns nil if not found.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	row := r.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, name, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email)
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
