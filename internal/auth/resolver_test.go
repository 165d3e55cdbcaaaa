package auth

import (
	"context"
	"errors"
	"testing"
)

func TestResolver_Resolve(t *testing.T) {
	db := testDB(t)
	resolver := NewResolver(NewAdminRepository(db), NewUserRepository(db))
	ctx := t.Context()

	seedTestAdmin(t, db, "root", "pw")
	seedTestUser(t, db, "olga", "pw", true)
	seedTestUser(t, db, "tom", "pw", false)

	tests := []struct {
		username string
		kind     IdentityKind
		role     Role
	}{
		{"root", KindAdmin, RoleAdmin},
		{"olga", KindUser, RoleOwner},
		{"tom", KindUser, RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			id, err := resolver.Resolve(ctx, tt.username)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if id.Kind != tt.kind || id.Role() != tt.role || id.Username() != tt.username {
				t.Errorf("Resolve() = (%s, %s, %s), want (%s, %s, %s)",
					id.Kind, id.Role(), id.Username(), tt.kind, tt.role, tt.username)
			}
			if id.PasswordHash() == "" {
				t.Error("PasswordHash() should not be empty")
			}
		})
	}

	if _, err := resolver.Resolve(ctx, "nobody"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("Resolve(missing) error = %v, want ErrIdentityNotFound", err)
	}
}

func TestResolver_AdminShadowsUser(t *testing.T) {
	db := testDB(t)
	resolver := NewResolver(NewAdminRepository(db), NewUserRepository(db))

	admin := seedTestAdmin(t, db, "alice", "admin-pw")
	seedTestUser(t, db, "alice", "user-pw", true)

	for range 5 {
		id, err := resolver.Resolve(t.Context(), "alice")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if id.Kind != KindAdmin || id.Role() != RoleAdmin || id.ID() != admin.ID {
			t.Fatalf("Resolve(alice) = %s/%s, want the admin identity", id.Kind, id.Role())
		}
	}
}

type failingAdmins struct{ err error }

func (f failingAdmins) GetByUsername(context.Context, string) (*Admin, error) { return nil, f.err }

func TestResolver_StoreErrorIsNotNotFound(t *testing.T) {
	db := testDB(t)
	seedTestUser(t, db, "bob", "pw", false)
	storeErr := errors.New("disk on fire")
	resolver := NewResolver(failingAdmins{err: storeErr}, NewUserRepository(db))

	_, err := resolver.Resolve(t.Context(), "bob")
	if !errors.Is(err, storeErr) {
		t.Errorf("Resolve() error = %v, want wrapped store error", err)
	}
	if errors.Is(err, ErrIdentityNotFound) {
		t.Error("a store failure must not fall through to the user store")
	}
}
