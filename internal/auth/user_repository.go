package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserRepository persists tenant and owner accounts.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByFederatedSubject(ctx context.Context, subject string) (*User, error)
	LinkFederatedSubject(ctx context.Context, id int64, subject string) error
}

// SQLiteUserRepository implements UserRepository using SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new SQLite-backed user repository.
func NewUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

const userColumns = "id, username, email, password_hash, first_name, last_name, phone_no, is_owner, federated_subject, registered_at"

// Create inserts a user and sets its ID and RegisteredAt.
// Duplicate usernames and emails map to ErrUsernameExists and ErrEmailExists.
func (r *SQLiteUserRepository) Create(ctx context.Context, user *User) error {
	var now string
	user.RegisteredAt, now = nowUTC()

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, first_name, last_name, phone_no, is_owner, federated_subject, registered_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.FirstName, user.LastName,
		nullString(user.PhoneNo), boolToInt(user.IsOwner), nullString(user.FederatedSubject), now,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err, "users.username"):
			return ErrUsernameExists
		case isUniqueViolation(err, "users.email"):
			return ErrEmailExists
		case isUniqueViolation(err, "users.federated_subject"):
			return ErrFederatedSubjectLinked
		}
		return fmt.Errorf("creating user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading user id: %w", err)
	}
	return nil
}

// GetByID retrieves a user by row id.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByUsername retrieves a user by username.
func (r *SQLiteUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
}

// GetByEmail retrieves a user by email address.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetByFederatedSubject retrieves the user linked to an identity
// provider account.
func (r *SQLiteUserRepository) GetByFederatedSubject(ctx context.Context, subject string) (*User, error) {
	if subject == "" {
		return nil, ErrIdentityNotFound
	}
	return r.getUser(ctx, "SELECT "+userColumns+" FROM users WHERE federated_subject = ?", subject)
}

// LinkFederatedSubject records subject on a user that has none yet.
// A user already linked to a different subject keeps it and
// ErrFederatedSubjectLinked is returned.
func (r *SQLiteUserRepository) LinkFederatedSubject(ctx context.Context, id int64, subject string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET federated_subject = ? WHERE id = ? AND (federated_subject IS NULL OR federated_subject = ?)`,
		subject, id, subject,
	)
	if err != nil {
		if isUniqueViolation(err, "users.federated_subject") {
			return ErrFederatedSubjectLinked
		}
		return fmt.Errorf("linking federated subject: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrFederatedSubjectLinked
	}
	return nil
}

func (r *SQLiteUserRepository) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	return scanUserFrom(r.db.QueryRowContext(ctx, query, args...))
}

// scanUserFrom scans a user row. sql.ErrNoRows maps to ErrIdentityNotFound.
func scanUserFrom(s scanner) (*User, error) {
	var u User
	var phone, subject sql.NullString
	var isOwner int
	var registeredAt string

	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &phone, &isOwner, &subject, &registeredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.IsOwner = isOwner != 0
	u.PhoneNo = phone.String
	u.FederatedSubject = subject.String
	u.RegisteredAt, _ = time.Parse(time.RFC3339, registeredAt) //nolint:errcheck // format is controlled

	return &u, nil
}
