package property

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
	"github.com/nerrad567/rentwise-core/internal/infrastructure/database"
	"github.com/nerrad567/rentwise-core/migrations"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(t.Context(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "property-test.db"),
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

func insertUser(t *testing.T, db *sql.DB, username string, isOwner bool) int64 {
	t.Helper()
	owner := 0
	if isOwner {
		owner = 1
	}
	res, err := db.ExecContext(t.Context(),
		`INSERT INTO users (username, email, password_hash, first_name, is_owner, registered_at)
		 VALUES (?, ?, 'x', 'Test', ?, '2026-03-01T12:00:00Z')`,
		username, username+"@example.com", owner)
	if err != nil {
		t.Fatalf("inserting user %q: %v", username, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func createProperty(t *testing.T, repo *SQLiteRepository, ownerID int64, address string) *Property {
	t.Helper()
	p := &Property{OwnerID: ownerID, Address: address, MonthlyRent: 1000, SecurityDeposit: 2000}
	if err := repo.Create(t.Context(), p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return p
}

func TestSQLiteRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ownerID := insertUser(t, db, "olga", true)

	p := createProperty(t, repo, ownerID, "1 Acacia Avenue")
	if p.ID == 0 {
		t.Fatal("Create() should set ID")
	}

	got, err := repo.GetByID(t.Context(), p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.OwnerUsername != "olga" || got.OwnerID != ownerID {
		t.Errorf("owner = %d/%q, want %d/olga", got.OwnerID, got.OwnerUsername, ownerID)
	}
	if got.Address != "1 Acacia Avenue" || got.MonthlyRent != 1000 || got.SecurityDeposit != 2000 {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.IsVerified {
		t.Error("new property should be unverified")
	}

	if _, err := repo.GetByID(t.Context(), 999); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("GetByID(missing) error = %v, want ErrPropertyNotFound", err)
	}
	if err := repo.Create(t.Context(), &Property{OwnerID: 999, Address: "nowhere"}); err == nil {
		t.Error("Create() with unknown owner should fail")
	}
}

func TestSQLiteRepository_ListByOwner(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	olga := insertUser(t, db, "olga", true)
	oscar := insertUser(t, db, "oscar", true)

	createProperty(t, repo, olga, "1 Acacia Avenue")
	createProperty(t, repo, oscar, "2 Birch Road")
	createProperty(t, repo, olga, "3 Cedar Lane")

	list, err := repo.ListByOwner(t.Context(), olga)
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(list) != 2 || list[0].Address != "1 Acacia Avenue" || list[1].Address != "3 Cedar Lane" {
		t.Errorf("ListByOwner() = %+v", list)
	}

	none, err := repo.ListByOwner(t.Context(), insertUser(t, db, "tom", false))
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("ListByOwner(no properties) = %v, want empty non-nil slice", none)
	}
}

func TestSQLiteRepository_ToggleVerified(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	p := createProperty(t, repo, insertUser(t, db, "olga", true), "1 Acacia Avenue")

	for _, want := range []bool{true, false, true} {
		got, err := repo.ToggleVerified(t.Context(), p.ID)
		if err != nil {
			t.Fatalf("ToggleVerified() error = %v", err)
		}
		if got != want {
			t.Errorf("ToggleVerified() = %v, want %v", got, want)
		}
	}

	stored, _ := repo.GetByID(t.Context(), p.ID)
	if !stored.IsVerified {
		t.Error("stored IsVerified = false after three toggles")
	}

	if _, err := repo.ToggleVerified(t.Context(), 999); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("ToggleVerified(missing) error = %v, want ErrPropertyNotFound", err)
	}
}

func TestSQLiteRepository_Wishlist(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteRepository(db)
	ctx := t.Context()
	owner := insertUser(t, db, "olga", true)
	tenant := insertUser(t, db, "tom", false)
	a := createProperty(t, repo, owner, "1 Acacia Avenue")
	b := createProperty(t, repo, owner, "2 Birch Road")

	added, err := repo.AddToWishlist(ctx, tenant, a.ID)
	if err != nil {
		t.Fatalf("AddToWishlist() error = %v", err)
	}
	if added.ID != a.ID {
		t.Errorf("AddToWishlist() returned property %d, want %d", added.ID, a.ID)
	}
	if _, err := repo.AddToWishlist(ctx, tenant, a.ID); err != nil {
		t.Errorf("AddToWishlist() twice error = %v", err)
	}
	if _, err := repo.AddToWishlist(ctx, tenant, b.ID); err != nil {
		t.Fatalf("AddToWishlist(b) error = %v", err)
	}
	if _, err := repo.AddToWishlist(ctx, tenant, 999); !errors.Is(err, ErrPropertyNotFound) {
		t.Errorf("AddToWishlist(missing) error = %v, want ErrPropertyNotFound", err)
	}

	list, err := repo.ListWishlist(ctx, tenant)
	if err != nil {
		t.Fatalf("ListWishlist() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListWishlist() len = %d, want 2", len(list))
	}

	if err := repo.RemoveFromWishlist(ctx, tenant, a.ID); err != nil {
		t.Fatalf("RemoveFromWishlist() error = %v", err)
	}
	if err := repo.RemoveFromWishlist(ctx, tenant, a.ID); !errors.Is(err, ErrNotWishlisted) {
		t.Errorf("RemoveFromWishlist() twice error = %v, want ErrNotWishlisted", err)
	}

	list, _ = repo.ListWishlist(ctx, tenant)
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("ListWishlist() after remove = %+v", list)
	}
}
