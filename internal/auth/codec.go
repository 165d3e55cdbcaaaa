package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the payload of every token the codec signs.
// Roles is only present on access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string  `json:"roles,omitempty"`
	Type  TokenType `json:"typ"`
}

// Role returns the first recognised role in the roles claim.
func (c *Claims) Role() (Role, bool) {
	for _, a := range c.Roles {
		if r, ok := RoleFromAuthority(a); ok {
			return r, true
		}
	}
	return "", false
}

// TokenCodec signs and parses HS512 tokens with a shared secret.
type TokenCodec struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption configures a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the codec's time source for issuance and validation.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) { c.now = now }
}

// NewTokenCodec creates a codec. Non-positive TTLs fall back to
// 15 minutes and 7 days.
func NewTokenCodec(secret string, accessTTL, refreshTTL time.Duration, opts ...CodecOption) *TokenCodec {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute //nolint:mnd // default access token TTL
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour //nolint:mnd // default refresh token TTL
	}
	c := &TokenCodec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessTTL returns the access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccessToken signs a short-lived token carrying subject and role.
func (c *TokenCodec) IssueAccessToken(subject string, role Role) (string, error) {
	return c.sign(subject, TokenAccess, c.accessTTL, []string{role.Authority()})
}

// IssueRefreshToken signs a long-lived token carrying only the subject.
func (c *TokenCodec) IssueRefreshToken(subject string) (string, error) {
	return c.sign(subject, TokenRefresh, c.refreshTTL, nil)
}

func (c *TokenCodec) sign(subject string, typ TokenType, ttl time.Duration, roles []string) (string, error) {
	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Roles: roles,
		Type:  typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", typ, err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims.
// Expired tokens return ErrTokenExpired; anything else unusable
// returns ErrTokenInvalid.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	claims, err := c.parse(token, jwt.WithTimeFunc(c.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims, nil
}

func (c *TokenCodec) parse(token string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}))
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseSubject returns the token's subject after full validation.
func (c *TokenCodec) ParseSubject(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ParseExpiry returns the token's expiry. The signature is checked but
// an expired token still reports its expiry.
func (c *TokenCodec) ParseExpiry(token string) (time.Time, error) {
	claims, err := c.parse(token, jwt.WithoutClaimsValidation())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: missing expiry", ErrTokenInvalid)
	}
	return claims.ExpiresAt.Time, nil
}

// IsExpired reports whether the token's expiry has passed.
// A token whose expiry cannot be read counts as expired.
func (c *TokenCodec) IsExpired(token string) bool {
	exp, err := c.ParseExpiry(token)
	if err != nil {
		return true
	}
	return !c.now().Before(exp)
}

// Validate is true iff the signature is valid, the subject matches and
// the token has not expired.
func (c *TokenCodec) Validate(token, subject string) bool {
	got, err := c.ParseSubject(token)
	return err == nil && got == subject
}

// ParseAccess accepts only access tokens that carry a role.
func (c *TokenCodec) ParseAccess(token string) (*Claims, Role, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return nil, "", err
	}
	if claims.Type != TokenAccess {
		return nil, "", fmt.Errorf("%w: not an access token", ErrTokenInvalid)
	}
	role, ok := claims.Role()
	if !ok {
		return nil, "", fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}
	return claims, role, nil
}

// ParseRefresh accepts only refresh tokens.
func (c *TokenCodec) ParseRefresh(token string) (*Claims, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrTokenInvalid)
	}
	return claims, nil
}
