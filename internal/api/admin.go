package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/rentwise-core/internal/audit"
	"github.com/nerrad567/rentwise-core/internal/events"
	"github.com/nerrad567/rentwise-core/internal/property"
)

// handleAdminGreeting confirms admin access.
func (s *Server) handleAdminGreeting(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "Hello Admin! You have full administrative access.")
}

// handleToggleVerify flips a property's verification flag. An unknown
// property answers 400, as the web client expects.
func (s *Server) handleToggleVerify(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	verified, err := s.properties.ToggleVerified(r.Context(), propertyID)
	if err != nil {
		if errors.Is(err, property.ErrPropertyNotFound) {
			writeBadRequest(w, err.Error())
			return
		}
		s.writeDomainError(w, r, "toggle property verification", err)
		return
	}

	s.events.Emit(r.Context(), events.Event{
		Type:       events.TypePropertyVerificationToggled,
		Actor:      principal.Username,
		Role:       string(principal.Role),
		PropertyID: propertyID,
		Detail:     "verified=" + strconv.FormatBool(verified),
		At:         time.Now().UTC(),
	})
	s.logger.Info("property verification toggled",
		"property_id", propertyID,
		"verified", verified,
		"admin", principal.Username,
	)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "property verification updated",
		"isVerified": verified,
	})
}

// handleListAudit returns a page of the audit trail.
//
// Query parameters: action, entityType, entityId, actor, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		Actor:      q.Get("actor"),
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
	}

	page, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, "list audit log", err)
		return
	}
	if page.Entries == nil {
		page.Entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, page)
}
