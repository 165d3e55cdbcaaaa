package auth

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/database"
	"github.com/nerrad567/rentwise-core/migrations"
)

const testSecret = "test-secret-key-at-least-32-chars!!"

// testDB opens a temp-file SQLite database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(t.Context(), migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// testHasher is cheap enough to run many times per test.
func testHasher() *Argon2Hasher {
	return NewArgon2Hasher(Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
}

// fakeClock is a settable time source.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// seedTestUser creates a user with the given password and owner flag.
func seedTestUser(t *testing.T, db *sql.DB, username, password string, isOwner bool) *User {
	t.Helper()

	hash, err := testHasher().Hash(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u := &User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		FirstName:    "Test",
		LastName:     "User",
		IsOwner:      isOwner,
	}
	if err := NewUserRepository(db).Create(t.Context(), u); err != nil {
		t.Fatalf("creating user %q: %v", username, err)
	}
	return u
}

// seedTestAdmin creates an admin with the given password.
func seedTestAdmin(t *testing.T, db *sql.DB, username, password string) *Admin {
	t.Helper()

	hash, err := testHasher().Hash(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	a := &Admin{Username: username, PasswordHash: hash}
	if err := NewAdminRepository(db).Create(t.Context(), a); err != nil {
		t.Fatalf("creating admin %q: %v", username, err)
	}
	return a
}
