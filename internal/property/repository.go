package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines property persistence used by the rental core.
type Repository interface {
	Create(ctx context.Context, p *Property) error
	GetByID(ctx context.Context, id int64) (*Property, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]Property, error)
	ToggleVerified(ctx context.Context, id int64) (bool, error)

	AddToWishlist(ctx context.Context, userID, propertyID int64) (*Property, error)
	RemoveFromWishlist(ctx context.Context, userID, propertyID int64) error
	ListWishlist(ctx context.Context, userID int64) ([]Property, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed property repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectProperty = `SELECT p.id, p.owner_id, u.username, p.address, p.monthly_rent,
	p.security_deposit, p.is_verified, p.created_at
	FROM properties p JOIN users u ON u.id = p.owner_id`

// Create inserts a property and sets its ID and CreatedAt.
func (r *SQLiteRepository) Create(ctx context.Context, p *Property) error {
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)

	verified := 0
	if p.IsVerified {
		verified = 1
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO properties (owner_id, address, monthly_rent, security_deposit, is_verified, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.OwnerID, p.Address, p.MonthlyRent, p.SecurityDeposit, verified,
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return fmt.Errorf("creating property: owner %d does not exist", p.OwnerID)
		}
		return fmt.Errorf("creating property: %w", err)
	}

	p.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading property id: %w", err)
	}
	return nil
}

// GetByID returns a property with its owner's username.
func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*Property, error) {
	p, err := scanProperty(r.db.QueryRowContext(ctx, selectProperty+" WHERE p.id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPropertyNotFound
		}
		return nil, fmt.Errorf("getting property %d: %w", id, err)
	}
	return p, nil
}

// ListByOwner returns the owner's properties, oldest first.
func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID int64) ([]Property, error) {
	return r.list(ctx, selectProperty+" WHERE p.owner_id = ? ORDER BY p.id", ownerID)
}

// ToggleVerified flips the verification flag and returns the new value.
func (r *SQLiteRepository) ToggleVerified(ctx context.Context, id int64) (bool, error) {
	var verified int
	err := r.db.QueryRowContext(ctx,
		`UPDATE properties SET is_verified = 1 - is_verified WHERE id = ? RETURNING is_verified`, id,
	).Scan(&verified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrPropertyNotFound
		}
		return false, fmt.Errorf("toggling verification for property %d: %w", id, err)
	}
	return verified == 1, nil
}

// AddToWishlist marks a property for a user. Adding twice is a no-op.
func (r *SQLiteRepository) AddToWishlist(ctx context.Context, userID, propertyID int64) (*Property, error) {
	p, err := r.GetByID(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO wishlist (user_id, property_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, property_id) DO NOTHING`,
		userID, propertyID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("adding property %d to wishlist: %w", propertyID, err)
	}
	return p, nil
}

// RemoveFromWishlist unmarks a property. It returns ErrNotWishlisted if
// the pair was never marked.
func (r *SQLiteRepository) RemoveFromWishlist(ctx context.Context, userID, propertyID int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM wishlist WHERE user_id = ? AND property_id = ?`, userID, propertyID)
	if err != nil {
		return fmt.Errorf("removing property %d from wishlist: %w", propertyID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotWishlisted
	}
	return nil
}

// ListWishlist returns the user's wishlisted properties, most recent first.
func (r *SQLiteRepository) ListWishlist(ctx context.Context, userID int64) ([]Property, error) {
	return r.list(ctx,
		selectProperty+" JOIN wishlist w ON w.property_id = p.id WHERE w.user_id = ? ORDER BY w.created_at DESC, p.id DESC",
		userID)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]Property, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying properties: %w", err)
	}
	defer rows.Close()

	out := []Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(s scanner) (*Property, error) {
	var p Property
	var verified int
	var createdAt string
	if err := s.Scan(&p.ID, &p.OwnerID, &p.OwnerUsername, &p.Address,
		&p.MonthlyRent, &p.SecurityDeposit, &verified, &createdAt); err != nil {
		return nil, err
	}
	p.IsVerified = verified == 1
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &p, nil
}
