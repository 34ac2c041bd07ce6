package storage

import (
	"context"
	"strings"

	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/services/site-service/internal/model"
)

type AdminRepository struct {
	db db.Querier
}

func NewAdminRepository(q db.Querier) *AdminRepository {
	return &AdminRepository{db: q}
}

// ByUsername returns only active admins.
func (r *AdminRepository) ByUsername(ctx context.Context, username string) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRow(ctx, `
		SELECT id::text, username, email, password_hash, role, is_active, last_login
		FROM admin_users
		WHERE username = $1 AND is_active = true
	`, strings.TrimSpace(username)).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.Active, &a.LastLogin)
	if db.IsNotFound(err) {
		return model.Admin{}, model.ErrNotFound
	}
	return a, err
}

func (r *AdminRepository) ByID(ctx context.Context, id string) (model.Admin, error) {
	var a model.Admin
	err := r.db.QueryRow(ctx, `
		SELECT id::text, username, email, password_hash, role, is_active, last_login
		FROM admin_users
		WHERE id::text = $1
	`, id).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.Active, &a.LastLogin)
	if db.IsNotFound(err) {
		return model.Admin{}, model.ErrNotFound
	}
	return a, err
}

func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE admin_users SET last_login = now() WHERE id::text = $1`, id)
	return err
}

// Upsert creates the admin or resets the password and email of an existing
// one. The returned bool is true when a new row was inserted.
func (r *AdminRepository) Upsert(ctx context.Context, username, email, passwordHash, role string) (string, bool, error) {
	var id string
	var inserted bool
	err := r.db.QueryRow(ctx, `
		INSERT INTO admin_users (username, email, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (username) DO UPDATE
		SET email = EXCLUDED.email, password_hash = EXCLUDED.password_hash,
			role = EXCLUDED.role, is_active = true, updated_at = now()
		RETURNING id::text, (xmax = 0)
	`, username, email, passwordHash, role).Scan(&id, &inserted)
	return id, inserted, err
}
