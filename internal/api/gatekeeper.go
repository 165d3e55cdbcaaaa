package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/nerrad567/rentwise-core/internal/auth"
	"github.com/nerrad567/rentwise-core/internal/rental"
)

const (
	ctxKeyPrincipal    contextKey = "principal"
	ctxKeyTokenExpired contextKey = "token_expired"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

// Caller converts the principal for the rental state machine.
func (p Principal) Caller() rental.Caller {
	return rental.Caller{Username: p.Username, Role: p.Role}
}

// principalFromContext returns the principal set by authenticate.
func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(Principal)
	return p, ok
}

// tokenExpiredFromContext reports whether the request carried an access
// token that was well-formed but expired.
func tokenExpiredFromContext(ctx context.Context) bool {
	expired, _ := ctx.Value(ctxKeyTokenExpired).(bool)
	return expired
}

// RouteRule grants access to paths under Prefix. A Prefix ending in "/"
// matches everything below it; otherwise it matches the exact path and
// its subpaths. Rules with no Roles and Public unset admit any
// authenticated principal.
type RouteRule struct {
	Prefix string
	Public bool
	Roles  []auth.Role
}

func (rule RouteRule) matches(path string) bool {
	if strings.HasSuffix(rule.Prefix, "/") {
		return strings.HasPrefix(path, rule.Prefix)
	}
	return path == rule.Prefix || strings.HasPrefix(path, rule.Prefix+"/")
}

// defaultRouteRules is evaluated in order; the first match wins.
// Paths matching no rule require authentication.
var defaultRouteRules = []RouteRule{
	{Prefix: "/auth/", Public: true},
	{Prefix: "/health", Public: true},
	{Prefix: "/ws", Public: true}, // ticket checked by the handler
	{Prefix: "/admin/", Roles: []auth.Role{auth.RoleAdmin}},
	{Prefix: "/owner/", Roles: []auth.Role{auth.RoleOwner, auth.RoleAdmin}},
	{Prefix: "/user/", Roles: []auth.Role{auth.RoleUser, auth.RoleAdmin}},
	{Prefix: "/rented/", Roles: []auth.Role{auth.RoleUser, auth.RoleAdmin}},
	{Prefix: "/home/"},
}

func matchRule(rules []RouteRule, path string) RouteRule {
	for _, rule := range rules {
		if rule.matches(path) {
			return rule
		}
	}
	return RouteRule{Prefix: path}
}

// authenticate reads the bearer token and, when it is a valid access
// token, stores the principal in the request context. An expired token
// sets the expired marker instead. It never rejects a request; authorize
// decides whether the route needs a principal.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		claims, role, err := s.codec.ParseAccess(token)
		switch {
		case err == nil:
			principal := Principal{Username: claims.Subject, Role: role}
			ctx = context.WithValue(ctx, ctxKeyPrincipal, principal)
			notePrincipal(ctx, principal)
		case errors.Is(err, auth.ErrTokenExpired):
			ctx = context.WithValue(ctx, ctxKeyTokenExpired, true)
		default:
			s.logger.Debug("bearer token rejected",
				"path", r.URL.Path,
				"error", err,
				"request_id", ctx.Value(ctxKeyRequestID),
			)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorize applies the route rules to the principal set by authenticate.
func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule := matchRule(s.rules, r.URL.Path)
		if rule.Public {
			next.ServeHTTP(w, r)
			return
		}

		principal, ok := principalFromContext(r.Context())
		if !ok {
			if tokenExpiredFromContext(r.Context()) {
				writeJSON(w, http.StatusUnauthorized, Error{ErrMessage: msgAccessTokenExpired, Expired: true})
				return
			}
			writeUnauthorized(w, msgUnauthenticated)
			return
		}

		if len(rule.Roles) > 0 && !slices.Contains(rule.Roles, principal.Role) {
			s.logger.Warn("access denied",
				"username", principal.Username,
				"role", principal.Role,
				"path", r.URL.Path,
				"request_id", r.Context().Value(ctxKeyRequestID),
			)
			writeError(w, http.StatusForbidden, msgAccessDenied)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}
