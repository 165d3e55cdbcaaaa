package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AdminRepository persists administrator accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *Admin) error
	GetByUsername(ctx context.Context, username string) (*Admin, error)
	Count(ctx context.Context) (int, error)
}

// SQLiteAdminRepository implements AdminRepository using SQLite.
type SQLiteAdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a new SQLite-backed admin repository.
func NewAdminRepository(db *sql.DB) *SQLiteAdminRepository {
	return &SQLiteAdminRepository{db: db}
}

// Create inserts an admin and sets its ID and CreatedAt.
func (r *SQLiteAdminRepository) Create(ctx context.Context, admin *Admin) error {
	var now string
	admin.CreatedAt, now = nowUTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (username, password_hash, created_at) VALUES (?, ?, ?)`,
		admin.Username, admin.PasswordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err, "admins.username") {
			return ErrUsernameExists
		}
		return fmt.Errorf("creating admin: %w", err)
	}

	admin.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading admin id: %w", err)
	}
	return nil
}

// GetByUsername retrieves an admin by username.
func (r *SQLiteAdminRepository) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	var a Admin
	var createdAt string

	err := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM admins WHERE username = ?", username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("getting admin: %w", err)
	}

	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &a, nil
}

// Count returns the number of admin accounts.
func (r *SQLiteAdminRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM admins").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return n, nil
}
