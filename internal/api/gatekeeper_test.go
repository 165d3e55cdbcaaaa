package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/nerrad567/rentwise-core/internal/auth"
)

func TestMatchRule(t *testing.T) {
	tests := []struct {
		path       string
		wantPrefix string
		wantPublic bool
	}{
		{"/auth/login", "/auth/", true},
		{"/health", "/health", true},
		{"/healthz", "/healthz", false},
		{"/ws", "/ws", true},
		{"/admin/user", "/admin/", false},
		{"/owner/property/3/rent-requests", "/owner/", false},
		{"/user/rent-property", "/user/", false},
		{"/rented/get-rented-properties", "/rented/", false},
		{"/home/me", "/home/", false},
		{"/nowhere", "/nowhere", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := matchRule(defaultRouteRules, tt.path)
			if got.Prefix != tt.wantPrefix {
				t.Errorf("matchRule(%q).Prefix = %q, want %q", tt.path, got.Prefix, tt.wantPrefix)
			}
			if got.Public != tt.wantPublic {
				t.Errorf("matchRule(%q).Public = %v, want %v", tt.path, got.Public, tt.wantPublic)
			}
		})
	}
}

func TestGatekeeper_Unauthenticated(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		path  string
		token string
	}{
		{"no token", "/home/me", ""},
		{"garbage token", "/home/me", "not-a-jwt"},
		{"unknown path", "/nowhere", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, nil, tt.token)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			body := decodeMap(t, rec)
			if body["errMessage"] != msgUnauthenticated {
				t.Errorf("errMessage = %v, want %q", body["errMessage"], msgUnauthenticated)
			}
			if _, ok := body["expired"]; ok {
				t.Error("expired flag set for a non-expired failure")
			}
		})
	}
}

func TestGatekeeper_RejectsForeignTokens(t *testing.T) {
	f := newFixture(t, nil)

	refresh, err := f.codec.IssueRefreshToken("bob")
	if err != nil {
		t.Fatalf("IssueRefreshToken() error = %v", err)
	}
	other := auth.NewTokenCodec("a-completely-different-secret-value!", time.Minute, time.Hour)
	forged, err := other.IssueAccessToken("bob", auth.RoleAdmin)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	for name, token := range map[string]string{"refresh token": refresh, "wrong secret": forged} {
		t.Run(name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/admin/user", nil, token)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestGatekeeper_ExpiredToken(t *testing.T) {
	f := newFixture(t, nil)

	past := auth.NewTokenCodec(testSecret, time.Minute, time.Hour, auth.WithClock(func() time.Time {
		return time.Now().Add(-time.Hour)
	}))
	token, err := past.IssueAccessToken("bob", auth.RoleUser)
	if err != nil {
		t.Fatalf("IssueAccessToken() error = %v", err)
	}

	rec := f.do(t, http.MethodGet, "/home/me", nil, token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["errMessage"] != msgAccessTokenExpired {
		t.Errorf("errMessage = %v, want %q", body["errMessage"], msgAccessTokenExpired)
	}
	if body["expired"] != true {
		t.Errorf("expired = %v, want true", body["expired"])
	}

	// Public routes ignore the expired token.
	rec = f.do(t, http.MethodGet, "/health", nil, token)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health with expired token status = %d, want 200", rec.Code)
	}
}

func TestGatekeeper_RoleRules(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		role   auth.Role
		want   int
	}{
		{"user on admin", http.MethodGet, "/admin/user", auth.RoleUser, http.StatusForbidden},
		{"owner on admin", http.MethodGet, "/admin/user", auth.RoleOwner, http.StatusForbidden},
		{"admin on admin", http.MethodGet, "/admin/user", auth.RoleAdmin, http.StatusOK},
		{"user on owner", http.MethodGet, "/owner/properties", auth.RoleUser, http.StatusForbidden},
		{"owner on user", http.MethodGet, "/user/getWishListedProperties", auth.RoleOwner, http.StatusForbidden},
		{"owner on rented", http.MethodGet, "/rented/get-rented-properties", auth.RoleOwner, http.StatusForbidden},
		{"user on home", http.MethodGet, "/home/me", auth.RoleUser, http.StatusOK},
		{"owner on home", http.MethodGet, "/home/me", auth.RoleOwner, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, nil, f.tokenFor(t, "someone", tt.role))
			if rec.Code != tt.want {
				t.Fatalf("%s %s as %s status = %d, want %d (body %s)",
					tt.method, tt.path, tt.role, rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusForbidden {
				if body := decodeMap(t, rec); body["errMessage"] != msgAccessDenied {
					t.Errorf("errMessage = %v, want %q", body["errMessage"], msgAccessDenied)
				}
			}
		})
	}
}

func TestAdminGreeting(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/admin/user", nil, f.tokenFor(t, "root", auth.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "Hello Admin! You have full administrative access." {
		t.Errorf("body = %q", got)
	}
}

func TestMe(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/home/me", nil, f.tokenFor(t, "olga", auth.RoleOwner))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeMap(t, rec)
	if body["username"] != "olga" || body["role"] != string(auth.RoleOwner) {
		t.Errorf("GET /home/me = %v", body)
	}
}
