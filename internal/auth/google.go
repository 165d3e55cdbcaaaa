package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

const googleIssuer = "https://accounts.google.com"

// defaultGivenName is used when the provider omits given_name.
const defaultGivenName = "User"

type googleClaims struct {
	Email      string `json:"email,omitempty"`
	Verified   bool   `json:"email_verified,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
}

// GoogleVerifier checks Google ID tokens issued for one client ID.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier discovers Google's signing keys and returns a verifier
// bound to clientID.
func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	p, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("new oidc provider: %w", err)
	}
	return &GoogleVerifier{verifier: p.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewGoogleVerifierFrom wraps an existing ID token verifier.
func NewGoogleVerifierFrom(v *oidc.IDTokenVerifier) *GoogleVerifier {
	return &GoogleVerifier{verifier: v}
}

// Verify validates idToken and returns the profile it describes.
// The subject is Google's account id. The email must be present and
// verified by Google.
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*FederatedProfile, error) {
	tok, err := g.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	if tok.Subject == "" {
		return nil, errors.New("id token has no subject")
	}

	var c googleClaims
	if err := tok.Claims(&c); err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}
	if c.Email == "" {
		return nil, errors.New("id token has no email")
	}
	if !c.Verified {
		return nil, errors.New("email not verified")
	}

	given := c.GivenName
	if given == "" {
		given = defaultGivenName
	}
	return &FederatedProfile{
		Subject:    tok.Subject,
		Email:      c.Email,
		GivenName:  given,
		FamilyName: c.FamilyName,
	}, nil
}
