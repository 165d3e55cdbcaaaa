package api

import (
	"net/http"

	"github.com/nerrad567/rentwise-core/internal/property"
)

// handleAddWishlist marks a property as wishlisted by the caller.
// Marking it twice is harmless.
func (s *Server) handleAddWishlist(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := s.currentUser(r.Context(), principal)
	if err != nil {
		s.writeDomainError(w, r, "wishlist user lookup", err)
		return
	}
	added, err := s.properties.AddToWishlist(r.Context(), user.ID, propertyID)
	if err != nil {
		s.writeDomainError(w, r, "add to wishlist", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "marked as wishlist success",
		"addedWishList": added,
	})
}

// handleListWishlist lists the caller's wishlisted properties.
func (s *Server) handleListWishlist(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	user, err := s.currentUser(r.Context(), principal)
	if err != nil {
		s.writeDomainError(w, r, "wishlist user lookup", err)
		return
	}
	props, err := s.properties.ListWishlist(r.Context(), user.ID)
	if err != nil {
		s.writeDomainError(w, r, "list wishlist", err)
		return
	}
	if props == nil {
		props = []property.Property{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":              "Fetched wishListed properties successfully",
		"wishListedProperties": props,
	})
}

// handleRemoveWishlist drops a property from the caller's wishlist.
func (s *Server) handleRemoveWishlist(w http.ResponseWriter, r *http.Request) {
	principal, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	propertyID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := s.currentUser(r.Context(), principal)
	if err != nil {
		s.writeDomainError(w, r, "wishlist user lookup", err)
		return
	}
	if err := s.properties.RemoveFromWishlist(r.Context(), user.ID, propertyID); err != nil {
		s.writeDomainError(w, r, "remove from wishlist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Removed wishlist successfully"})
}
