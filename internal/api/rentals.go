package api

import (
	"context"
	"net/http"
	"time"

	"github.com/nerrad567/rentwise-core/internal/auth"
	"github.com/nerrad567/rentwise-core/internal/property"
	"github.com/nerrad567/rentwise-core/internal/rental"
)

type acceptRentRequest struct {
	RequestID            int64   `json:"requestId" validate:"required,gt=0"`
	FinalMonthlyRent     float64 `json:"finalMonthlyRent" validate:"gte=0"`
	FinalSecurityDeposit float64 `json:"finalSecurityDeposit" validate:"gte=0"`
}

type rejectRentRequest struct {
	RequestID int64 `json:"requestId" validate:"required,gt=0"`
}

type rentPropertyRequest struct {
	PropertyID           int64   `json:"propertyId" validate:"required,gt=0"`
	StartDate            string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate              string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	FinalMonthlyRent     float64 `json:"finalMonthlyRent" validate:"gte=0"`
	FinalSecurityDeposit float64 `json:"finalSecurityDeposit" validate:"gte=0"`
}

// ─── Owner ─────────────────────────────────────────────────────────

// handleOwnerProperties lists the caller's own properties.
func (s *Server) handleOwnerProperties(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	owner, err := s.currentUser(r.Context(), principal)
	if err != nil {
		s.writeDomainError(w, r, "owner lookup", err)
		return
	}
	props, err := s.properties.ListByOwner(r.Context(), owner.ID)
	if err != nil {
		s.writeDomainError(w, r, "list owner properties", err)
		return
	}
	if props == nil {
		props = []property.Property{}
	}
	writeJSON(w, http.StatusOK, props)
}

// handleAcceptRentRequest accepts a pending request with the agreed terms.
// Accepting an already-accepted request re-applies the terms.
func (s *Server) handleAcceptRentRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req acceptRentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rp, err := s.rentals.AcceptRequest(r.Context(), principal.Caller(), req.RequestID, req.FinalMonthlyRent, req.FinalSecurityDeposit)
	if err != nil {
		s.writeDomainError(w, r, "accept rent request", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":                 "rent request accepted success",
		"updated rented property": rp.View(),
	})
}

// handleRejectRentRequest deletes a request.
func (s *Server) handleRejectRentRequest(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req rejectRentRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.rentals.RejectRequest(r.Context(), principal.Caller(), req.RequestID); err != nil {
		s.writeDomainError(w, r, "reject rent request", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Rent request rejected successfully"})
}

// handleRentRequestCount returns the number of pending requests on a
// property the caller owns.
func (s *Server) handleRentRequestCount(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := s.ownedProperty(w, r)
	if !ok {
		return
	}

	count, err := s.rentals.CountPendingForProperty(r.Context(), propertyID)
	if err != nil {
		s.writeDomainError(w, r, "count rent requests", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

// handleRentRequests lists pending requests on a property the caller owns.
func (s *Server) handleRentRequests(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := s.ownedProperty(w, r)
	if !ok {
		return
	}

	views, err := s.rentals.ListPendingForProperty(r.Context(), propertyID)
	if err != nil {
		s.writeDomainError(w, r, "list rent requests", err)
		return
	}
	if views == nil {
		views = []rental.RentRequestView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "requests fetch success",
		"rentRequests": views,
	})
}

// ownedProperty resolves the {id} property and checks the caller may
// manage it. On failure the response is already written.
func (s *Server) ownedProperty(w http.ResponseWriter, r *http.Request) (int64, bool) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return 0, false
	}
	propertyID, ok := pathID(w, r, "id")
	if !ok {
		return 0, false
	}

	p, err := s.properties.GetByID(r.Context(), propertyID)
	if err != nil {
		s.writeDomainError(w, r, "property lookup", err)
		return 0, false
	}
	if err := rental.CheckOwnership(principal.Caller(), p.OwnerUsername); err != nil {
		s.writeDomainError(w, r, "property ownership", err)
		return 0, false
	}
	return propertyID, true
}

// ─── Tenant ────────────────────────────────────────────────────────

// handleRentProperty records a pending rent request from the caller.
func (s *Server) handleRentProperty(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	var req rentPropertyRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// Both dates passed the datetime validator.
	start, _ := time.Parse(rental.DateLayout, req.StartDate) //nolint:errcheck // validated above
	end, _ := time.Parse(rental.DateLayout, req.EndDate)     //nolint:errcheck // validated above

	rp, err := s.rentals.CreateRequest(r.Context(), rental.NewRequest{
		TenantUsername:  principal.Username,
		PropertyID:      req.PropertyID,
		StartDate:       start,
		EndDate:         end,
		ProposedRent:    req.FinalMonthlyRent,
		ProposedDeposit: req.FinalSecurityDeposit,
	})
	if err != nil {
		s.writeDomainError(w, r, "create rent request", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "rent request sent success",
		"rent request": rp.View(),
	})
}

// handleRentedProperties lists the caller's requests and leases.
func (s *Server) handleRentedProperties(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if principal.Role == auth.RoleOwner {
		writeError(w, http.StatusForbidden, msgAccessDenied)
		return
	}

	tenant, err := s.currentUser(r.Context(), principal)
	if err != nil {
		s.writeDomainError(w, r, "tenant lookup", err)
		return
	}
	views, err := s.rentals.ListForTenant(r.Context(), tenant.ID)
	if err != nil {
		s.writeDomainError(w, r, "list rented properties", err)
		return
	}
	if views == nil {
		views = []rental.RentedView{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":           "Rented properties fetched successfully",
		"rented properties": views,
	})
}

func (s *Server) currentUser(ctx context.Context, principal Principal) (*auth.User, error) {
	return s.users.GetByUsername(ctx, principal.Username) //nolint:wrapcheck // sentinel mapped by writeDomainError
}
