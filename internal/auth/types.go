package auth

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// usernamePattern allows alphanumerics, dots, hyphens and underscores.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername reports whether username meets the format rules.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role is the authorisation tier of an identity.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleOwner Role = "OWNER"
	RoleUser  Role = "USER"
)

// authorityPrefix is prepended to roles in the token's roles claim.
const authorityPrefix = "ROLE_"

// Authority returns the role as carried in tokens, e.g. "ROLE_OWNER".
func (r Role) Authority() string {
	return authorityPrefix + string(r)
}

// RoleFromAuthority parses "ROLE_X" back into a Role.
func RoleFromAuthority(authority string) (Role, bool) {
	name, ok := strings.CutPrefix(authority, authorityPrefix)
	if !ok {
		return "", false
	}
	switch r := Role(name); r {
	case RoleAdmin, RoleOwner, RoleUser:
		return r, true
	default:
		return "", false
	}
}

// Admin is an identity from the admin store. Its role is always ADMIN.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// User is an identity from the user store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	PhoneNo      string    `json:"phoneNo,omitempty"`
	IsOwner      bool      `json:"isOwner"`
	RegisteredAt time.Time `json:"registeredAt"`

	// FederatedSubject is the identity provider's stable account id
	// ("sub"). Empty for accounts that never signed in that way.
	FederatedSubject string `json:"-"`
}

// Role returns OWNER for property owners and USER otherwise.
func (u *User) Role() Role {
	if u.IsOwner {
		return RoleOwner
	}
	return RoleUser
}

// IdentityKind says which store an Identity came from.
type IdentityKind string

const (
	KindAdmin IdentityKind = "admin"
	KindUser  IdentityKind = "user"
)

// Identity is either an Admin or a User. Exactly one pointer is set,
// matching Kind.
type Identity struct {
	Kind  IdentityKind
	Admin *Admin
	User  *User
}

// AdminIdentity wraps an admin.
func AdminIdentity(a *Admin) *Identity { return &Identity{Kind: KindAdmin, Admin: a} }

// UserIdentity wraps a user.
func UserIdentity(u *User) *Identity { return &Identity{Kind: KindUser, User: u} }

// Role derives the effective role.
func (i *Identity) Role() Role {
	if i.Kind == KindAdmin {
		return RoleAdmin
	}
	return i.User.Role()
}

func (i *Identity) Username() string {
	if i.Kind == KindAdmin {
		return i.Admin.Username
	}
	return i.User.Username
}

func (i *Identity) PasswordHash() string {
	if i.Kind == KindAdmin {
		return i.Admin.PasswordHash
	}
	return i.User.PasswordHash
}

// ID is the row id within the identity's own store.
func (i *Identity) ID() int64 {
	if i.Kind == KindAdmin {
		return i.Admin.ID
	}
	return i.User.ID
}

// Session is what a successful authentication hands back to the client.
// RefreshToken is empty for flows that only mint an access token.
type Session struct {
	ID           int64
	AccessToken  string
	RefreshToken string
	Username     string
	Role         Role
}

// Sentinel errors for auth operations.
var (
	ErrBadCredentials         = errors.New("invalid credentials")
	ErrIdentityNotFound       = errors.New("identity not found")
	ErrRefreshTokenMissing    = errors.New("refresh token not found")
	ErrRefreshTokenExpired    = errors.New("refresh token has expired")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrTokenExpired           = errors.New("token has expired")
	ErrUsernameExists         = errors.New("username already exists")
	ErrEmailExists            = errors.New("email already registered")
	ErrInvalidUsername        = errors.New("username must be 1-64 characters of letters, digits, '.', '-' or '_'")
	ErrFederatedVerification  = errors.New("federated credential verification failed")
	ErrFederatedSubjectLinked = errors.New("account is linked to another federated identity")
	ErrForbidden              = errors.New("access denied")
)
