package auth

import (
	"database/sql"
	"strings"
	"time"
)

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation checks for a SQLite UNIQUE constraint failure,
// optionally on a specific "table.column".
func isUniqueViolation(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return column == "" || strings.Contains(msg, column)
}

// nowUTC returns the current time truncated to what RFC3339 stores.
func nowUTC() (time.Time, string) {
	s := time.Now().UTC().Format(time.RFC3339)
	t, _ := time.Parse(time.RFC3339, s) //nolint:errcheck // format is controlled
	return t, s
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
