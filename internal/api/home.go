package api

import (
	"net/http"
)

// handleMe returns the authenticated principal.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, principal)
}

// handleWSTicket issues a single-use ticket for GET /ws.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	ttl := s.ticketTTL()
	ticket, err := s.tickets.Issue(r.Context(), principal, ttl)
	if err != nil {
		s.writeDomainError(w, r, "issue websocket ticket", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":    ticket,
		"expiresIn": int(ttl.Seconds()),
	})
}
