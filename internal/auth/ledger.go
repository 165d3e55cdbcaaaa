package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// RefreshRecord is the single live refresh token held for an identity.
type RefreshRecord struct {
	Kind      IdentityKind
	OwnerID   int64
	TokenHash string
	ExpiresAt time.Time
}

// Expired reports whether the record has expired at now.
func (r *RefreshRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Matches reports whether token is the one this record was written for.
func (r *RefreshRecord) Matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(HashToken(token)), []byte(r.TokenHash)) == 1
}

// HashToken computes the SHA-256 hash of a raw token string for storage.
// Raw tokens are never stored, only their hashes.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// RefreshLedger stores one refresh token per identity. Store overwrites
// any earlier token for the same identity; the last writer wins.
type RefreshLedger interface {
	Store(ctx context.Context, identity *Identity, token string, expiresAt time.Time) error
	Lookup(ctx context.Context, identity *Identity) (*RefreshRecord, error)
}

// SQLiteRefreshLedger keeps user tokens in refresh_tokens and admin
// tokens inline on the admins row.
type SQLiteRefreshLedger struct {
	db *sql.DB
}

// NewRefreshLedger creates a new SQLite-backed ledger.
func NewRefreshLedger(db *sql.DB) *SQLiteRefreshLedger {
	return &SQLiteRefreshLedger{db: db}
}

// Store writes the token's hash and expiry for identity, replacing any
// previous record in place.
func (l *SQLiteRefreshLedger) Store(ctx context.Context, identity *Identity, token string, expiresAt time.Time) error {
	hash := HashToken(token)
	exp := expiresAt.UTC().Format(time.RFC3339)

	if identity.Kind == KindAdmin {
		result, err := l.db.ExecContext(ctx,
			`UPDATE admins SET refresh_token_hash = ?, refresh_expires_at = ? WHERE id = ?`,
			hash, exp, identity.ID(),
		)
		if err != nil {
			return fmt.Errorf("storing admin refresh token: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if rows == 0 {
			return ErrIdentityNotFound
		}
		return nil
	}

	_, now := nowUTC()
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   token_hash = excluded.token_hash,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		identity.ID(), hash, exp, now,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("storing user refresh token: %w", err)
	}
	return nil
}

// Lookup returns the identity's refresh record or ErrRefreshTokenMissing.
func (l *SQLiteRefreshLedger) Lookup(ctx context.Context, identity *Identity) (*RefreshRecord, error) {
	var hash sql.NullString
	var exp sql.NullString

	var err error
	if identity.Kind == KindAdmin {
		err = l.db.QueryRowContext(ctx,
			`SELECT refresh_token_hash, refresh_expires_at FROM admins WHERE id = ?`, identity.ID(),
		).Scan(&hash, &exp)
	} else {
		err = l.db.QueryRowContext(ctx,
			`SELECT token_hash, expires_at FROM refresh_tokens WHERE user_id = ?`, identity.ID(),
		).Scan(&hash, &exp)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefreshTokenMissing
		}
		return nil, fmt.Errorf("looking up refresh token: %w", err)
	}
	if !hash.Valid || !exp.Valid {
		return nil, ErrRefreshTokenMissing
	}

	expiresAt, err := time.Parse(time.RFC3339, exp.String)
	if err != nil {
		return nil, fmt.Errorf("parsing refresh expiry: %w", err)
	}

	return &RefreshRecord{
		Kind:      identity.Kind,
		OwnerID:   identity.ID(),
		TokenHash: hash.String,
		ExpiresAt: expiresAt,
	}, nil
}
