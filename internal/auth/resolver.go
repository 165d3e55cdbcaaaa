package auth

import (
	"context"
	"errors"
	"fmt"
)

// AdminLookup is the read side of the admin store.
type AdminLookup interface {
	GetByUsername(ctx context.Context, username string) (*Admin, error)
}

// UserLookup is the read side of the user store.
type UserLookup interface {
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// Resolver finds which store holds a username.
type Resolver struct {
	admins AdminLookup
	users  UserLookup
}

// NewResolver creates a Resolver over the two identity stores.
func NewResolver(admins AdminLookup, users UserLookup) *Resolver {
	return &Resolver{admins: admins, users: users}
}

// Resolve checks the admin store first, then the user store.
// It returns ErrIdentityNotFound when neither holds username.
func (r *Resolver) Resolve(ctx context.Context, username string) (*Identity, error) {
	admin, err := r.admins.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return AdminIdentity(admin), nil
	case !errors.Is(err, ErrIdentityNotFound):
		return nil, fmt.Errorf("resolving admin %q: %w", username, err)
	}

	user, err := r.users.GetByUsername(ctx, username)
	switch {
	case err == nil:
		return UserIdentity(user), nil
	case errors.Is(err, ErrIdentityNotFound):
		return nil, ErrIdentityNotFound
	default:
		return nil, fmt.Errorf("resolving user %q: %w", username, err)
	}
}
