package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gosimple/slug"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nerrad567/rentwise-core/internal/events"
)

const (
	maxUsernameLength     = 64
	usernameSuffixAlpha   = "abcdefghijklmnopqrstuvwxyz0123456789"
	usernameSuffixLength  = 6
	placeholderSecretSize = 32
)

// FederatedProfile is what a verified third-party credential yields.
// Subject is the provider's stable account id and must be set.
type FederatedProfile struct {
	Subject    string
	Email      string
	GivenName  string
	FamilyName string
}

// FederatedVerifier turns an opaque external credential into a profile.
type FederatedVerifier interface {
	Verify(ctx context.Context, credential string) (*FederatedProfile, error)
}

// GatewayDeps holds the Gateway's collaborators.
type GatewayDeps struct {
	Resolver *Resolver
	Ledger   RefreshLedger
	Users    UserRepository
	Admins   AdminRepository
	Hasher   PasswordHasher
	Codec    *TokenCodec

	// Verifier is optional; FederatedLogin fails without one.
	Verifier FederatedVerifier

	Events events.Sink
	Logger *slog.Logger
	Clock  func() time.Time
}

// Gateway orchestrates every authentication flow.
type Gateway struct {
	resolver *Resolver
	ledger   RefreshLedger
	users    UserRepository
	admins   AdminRepository
	hasher   PasswordHasher
	codec    *TokenCodec
	verifier FederatedVerifier
	events   events.Sink
	logger   *slog.Logger
	now      func() time.Time
}

// NewGateway creates a Gateway. Events, Logger and Clock default to
// events.Discard, slog.Default and time.Now.
func NewGateway(deps GatewayDeps) *Gateway {
	g := &Gateway{
		resolver: deps.Resolver,
		ledger:   deps.Ledger,
		users:    deps.Users,
		admins:   deps.Admins,
		hasher:   deps.Hasher,
		codec:    deps.Codec,
		verifier: deps.Verifier,
		events:   deps.Events,
		logger:   deps.Logger,
		now:      deps.Clock,
	}
	if g.events == nil {
		g.events = events.Discard{}
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Login checks the password and requires a live refresh token already on
// record before minting an access token. The returned session carries no
// refresh token.
func (g *Gateway) Login(ctx context.Context, username, password string) (*Session, error) {
	identity, err := g.authenticate(ctx, username, password)
	if err != nil {
		g.loginFailed(ctx, username, err)
		return nil, err
	}

	if err := g.requireLiveRefresh(ctx, identity); err != nil {
		g.loginFailed(ctx, username, err)
		return nil, err
	}

	session, err := g.accessSession(identity)
	if err != nil {
		return nil, err
	}

	g.logger.Info("login succeeded", "username", session.Username, "role", session.Role)
	g.emit(ctx, events.TypeLogin, identity, "")
	return session, nil
}

// IssueRefreshToken checks the password, then issues an access token and
// a refresh token. The refresh token replaces any earlier one on record.
func (g *Gateway) IssueRefreshToken(ctx context.Context, username, password string) (*Session, error) {
	identity, err := g.authenticate(ctx, username, password)
	if err != nil {
		g.loginFailed(ctx, username, err)
		return nil, err
	}

	session, err := g.fullSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	g.logger.Info("refresh token issued", "username", session.Username, "role", session.Role)
	g.emit(ctx, events.TypeRefreshIssued, identity, "")
	return session, nil
}

// RenewAccessToken mints a new access token from a refresh token. The
// refresh token is not rotated and is returned as given. A token that has
// been superseded by a later issuance is rejected.
func (g *Gateway) RenewAccessToken(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := g.codec.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	identity, err := g.resolver.Resolve(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrIdentityNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrTokenInvalid)
		}
		return nil, err
	}

	record, err := g.ledger.Lookup(ctx, identity)
	switch {
	case errors.Is(err, ErrRefreshTokenMissing):
		return nil, fmt.Errorf("%w: no refresh token on record", ErrTokenInvalid)
	case err != nil:
		return nil, err
	case !record.Matches(refreshToken):
		g.logger.Warn("superseded refresh token presented", "username", identity.Username())
		return nil, fmt.Errorf("%w: refresh token superseded", ErrTokenInvalid)
	case record.Expired(g.now()):
		return nil, ErrTokenExpired
	}

	session, err := g.accessSession(identity)
	if err != nil {
		return nil, err
	}
	session.RefreshToken = refreshToken

	g.emit(ctx, events.TypeRenewed, identity, "")
	return session, nil
}

// ReAuthenticate mints an access token without a password. It requires
// a live refresh token on record for username.
func (g *Gateway) ReAuthenticate(ctx context.Context, username string) (*Session, error) {
	identity, err := g.resolver.Resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := g.requireLiveRefresh(ctx, identity); err != nil {
		return nil, err
	}

	session, err := g.accessSession(identity)
	if err != nil {
		return nil, err
	}

	g.emit(ctx, events.TypeReAuthenticated, identity, "")
	return session, nil
}

// FederatedLogin verifies an external credential and signs in the matching
// user, creating one on first sight. The user is found by the provider's
// subject, then by email. A username is never enough to match an account.
func (g *Gateway) FederatedLogin(ctx context.Context, credential string) (*Session, error) {
	if g.verifier == nil {
		return nil, fmt.Errorf("%w: no verifier configured", ErrFederatedVerification)
	}

	profile, err := g.verifier.Verify(ctx, credential)
	if err != nil {
		g.logger.Warn("federated credential rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFederatedVerification, err)
	}
	if profile.Subject == "" {
		return nil, fmt.Errorf("%w: credential has no subject", ErrFederatedVerification)
	}

	user, err := g.findOrCreateFederatedUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	identity := UserIdentity(user)
	session, err := g.fullSession(ctx, identity)
	if err != nil {
		return nil, err
	}

	g.logger.Info("federated login succeeded", "username", user.Username)
	g.emit(ctx, events.TypeFederatedLogin, identity, "")
	return session, nil
}

func (g *Gateway) findOrCreateFederatedUser(ctx context.Context, profile *FederatedProfile) (*User, error) {
	user, err := g.users.GetByFederatedSubject(ctx, profile.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return nil, err
	}

	user, err = g.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
		return g.linkFederatedUser(ctx, user, profile.Subject)
	case !errors.Is(err, ErrIdentityNotFound):
		return nil, err
	}

	username, err := g.federatedUsername(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	secret, err := gonanoid.New(placeholderSecretSize)
	if err != nil {
		return nil, fmt.Errorf("generating placeholder secret: %w", err)
	}
	hash, err := g.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hashing placeholder secret: %w", err)
	}

	user = &User{
		Username:         username,
		Email:            profile.Email,
		PasswordHash:     hash,
		FirstName:        profile.GivenName,
		LastName:         profile.FamilyName,
		IsOwner:          false,
		FederatedSubject: profile.Subject,
	}
	if err := g.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating federated user: %w", err)
	}

	g.logger.Info("federated user created", "username", username)
	g.emit(ctx, events.TypeUserRegistered, UserIdentity(user), "federated")
	return user, nil
}

// linkFederatedUser ties an account found by verified email to subject.
// An account already tied to another subject is refused.
func (g *Gateway) linkFederatedUser(ctx context.Context, user *User, subject string) (*User, error) {
	if user.FederatedSubject == subject {
		return user, nil
	}
	if user.FederatedSubject == "" {
		err := g.users.LinkFederatedSubject(ctx, user.ID, subject)
		if err == nil {
			user.FederatedSubject = subject
			g.logger.Info("federated identity linked", "username", user.Username)
			return user, nil
		}
		if !errors.Is(err, ErrFederatedSubjectLinked) {
			return nil, err
		}
	}
	g.logger.Warn("federated identity conflicts with linked account", "username", user.Username)
	return nil, fmt.Errorf("%w: %w", ErrFederatedVerification, ErrFederatedSubjectLinked)
}

// federatedUsername derives a username for a new account from the email's
// local part. A name already held by an admin or a user gets a random
// suffix; an existing account is never reused by name.
func (g *Gateway) federatedUsername(ctx context.Context, email string) (string, error) {
	local, _, _ := strings.Cut(email, "@")
	name := local
	if !IsValidUsername(name) {
		name = slug.Make(local)
	}
	if len(name) > maxUsernameLength {
		name = name[:maxUsernameLength]
	}
	if name == "" {
		id, err := gonanoid.Generate(usernameSuffixAlpha, 10) //nolint:mnd // fallback name length
		if err != nil {
			return "", fmt.Errorf("generating username: %w", err)
		}
		return "user-" + id, nil
	}

	taken, err := g.usernameTaken(ctx, name)
	if err != nil {
		return "", err
	}
	if !taken {
		return name, nil
	}

	suffix, err := gonanoid.Generate(usernameSuffixAlpha, usernameSuffixLength)
	if err != nil {
		return "", fmt.Errorf("generating username suffix: %w", err)
	}
	if len(name) > maxUsernameLength-usernameSuffixLength-1 {
		name = name[:maxUsernameLength-usernameSuffixLength-1]
	}
	return name + "-" + suffix, nil
}

// usernameTaken reports whether either identity store holds name.
func (g *Gateway) usernameTaken(ctx context.Context, name string) (bool, error) {
	if _, err := g.admins.GetByUsername(ctx, name); !errors.Is(err, ErrIdentityNotFound) {
		return err == nil, err
	}
	if _, err := g.users.GetByUsername(ctx, name); !errors.Is(err, ErrIdentityNotFound) {
		return err == nil, err
	}
	return false, nil
}

// RegisterUserInput is the data needed to register a user.
type RegisterUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	PhoneNo   string
	IsOwner   bool
}

// RegisterUser creates a user. A username already held by an admin is
// refused, since the admin would shadow it.
func (g *Gateway) RegisterUser(ctx context.Context, in RegisterUserInput) (*User, error) {
	if !IsValidUsername(in.Username) {
		return nil, ErrInvalidUsername
	}

	_, err := g.admins.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		return nil, ErrUsernameExists
	case !errors.Is(err, ErrIdentityNotFound):
		return nil, err
	}

	hash, err := g.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PhoneNo:      in.PhoneNo,
		IsOwner:      in.IsOwner,
	}
	if err := g.users.Create(ctx, user); err != nil {
		return nil, err
	}

	g.logger.Info("user registered", "username", user.Username, "role", user.Role())
	g.emit(ctx, events.TypeUserRegistered, UserIdentity(user), "")
	return user, nil
}

// RegisterAdmin creates an admin.
func (g *Gateway) RegisterAdmin(ctx context.Context, username, password string) (*Admin, error) {
	if !IsValidUsername(username) {
		return nil, ErrInvalidUsername
	}

	hash, err := g.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	admin := &Admin{Username: username, PasswordHash: hash}
	if err := g.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	g.logger.Info("admin registered", "username", username)
	g.emit(ctx, events.TypeAdminRegistered, AdminIdentity(admin), "")
	return admin, nil
}

// authenticate resolves username and verifies password against it.
func (g *Gateway) authenticate(ctx context.Context, username, password string) (*Identity, error) {
	identity, err := g.resolver.Resolve(ctx, username)
	if err != nil {
		return nil, err
	}

	ok, err := g.hasher.Verify(password, identity.PasswordHash())
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrBadCredentials
	}
	return identity, nil
}

func (g *Gateway) requireLiveRefresh(ctx context.Context, identity *Identity) error {
	record, err := g.ledger.Lookup(ctx, identity)
	if err != nil {
		return err
	}
	if record.Expired(g.now()) {
		return ErrRefreshTokenExpired
	}
	return nil
}

func (g *Gateway) accessSession(identity *Identity) (*Session, error) {
	access, err := g.codec.IssueAccessToken(identity.Username(), identity.Role())
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          identity.ID(),
		AccessToken: access,
		Username:    identity.Username(),
		Role:        identity.Role(),
	}, nil
}

// fullSession issues both tokens and records the refresh token.
func (g *Gateway) fullSession(ctx context.Context, identity *Identity) (*Session, error) {
	session, err := g.accessSession(identity)
	if err != nil {
		return nil, err
	}

	refresh, err := g.codec.IssueRefreshToken(identity.Username())
	if err != nil {
		return nil, err
	}
	expiresAt, err := g.codec.ParseExpiry(refresh)
	if err != nil {
		return nil, err
	}
	if err := g.ledger.Store(ctx, identity, refresh, expiresAt); err != nil {
		return nil, err
	}

	session.RefreshToken = refresh
	return session, nil
}

func (g *Gateway) loginFailed(ctx context.Context, username string, err error) {
	g.logger.Warn("login failed", "username", username, "reason", err.Error())
	g.events.Emit(ctx, events.Event{
		Type:   events.TypeLoginFailed,
		Actor:  username,
		Detail: err.Error(),
		At:     g.now(),
	})
}

func (g *Gateway) emit(ctx context.Context, eventType string, identity *Identity, detail string) {
	g.events.Emit(ctx, events.Event{
		Type:   eventType,
		Actor:  identity.Username(),
		Role:   string(identity.Role()),
		Detail: detail,
		At:     g.now(),
	})
}
