package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
// Paths are part of the external contract and keep the web client's
// spelling.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Request gatekeeper
	r.Use(s.authenticate)
	r.Use(s.authorize)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/generate-refresh-token", s.handleGenerateRefreshToken)
		r.Post("/refresh-token", s.handleRefreshToken)
		r.Post("/re-login", s.handleReLogin)
		r.Post("/register/user", s.handleRegisterUser)
		r.Post("/register/admin", s.handleRegisterAdmin)
		r.Post("/google/login", s.handleGoogleLogin)
	})

	r.Route("/owner", func(r chi.Router) {
		r.Get("/properties", s.handleOwnerProperties)
		r.Post("/accept-rent-request", s.handleAcceptRentRequest)
		r.Delete("/reject-rent-request", s.handleRejectRentRequest)
		r.Get("/property/{id}/rent-requests-count", s.handleRentRequestCount)
		r.Get("/property/{id}/rent-requests", s.handleRentRequests)
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/rent-property", s.handleRentProperty)
		r.Post("/wishListProperty/{id}", s.handleAddWishlist)
		r.Get("/getWishListedProperties", s.handleListWishlist)
		r.Delete("/removeWishListProperty/{id}", s.handleRemoveWishlist)
	})

	r.Get("/rented/get-rented-properties", s.handleRentedProperties)

	r.Route("/admin", func(r chi.Router) {
		r.Get("/user", s.handleAdminGreeting)
		r.Put("/toggleVerify/{id}", s.handleToggleVerify)
		r.Get("/audit", s.handleListAudit)
	})

	r.Route("/home", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Post("/ws-ticket", s.handleWSTicket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// pathID parses a positive integer URL parameter. It writes a 400 and
// returns false when the parameter is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

// mustPrincipal returns the caller. authorize guarantees one on every
// non-public route, so a miss is answered as unauthenticated.
func mustPrincipal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, msgUnauthenticated)
	}
	return p, ok
}
