package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/rentwise-core/internal/auth"
	"github.com/nerrad567/rentwise-core/internal/property"
	"github.com/nerrad567/rentwise-core/internal/rental"
)

// Error is the envelope written on every failure path.
// Expired is set when the client should renew its access token.
type Error struct {
	ErrMessage  string `json:"errMessage"`
	DetailError string `json:"detailError,omitempty"`
	Expired     bool   `json:"expired,omitempty"`
}

// Gatekeeper messages.
const (
	msgAccessDenied       = "Access Denied"
	msgUnauthenticated    = "Access Denied !!"
	msgAccessTokenExpired = "Access token is expired"
	msgInternal           = "internal server error"
)

// errorMapping ties a domain sentinel to a status. An empty message
// reuses the sentinel's own text.
type errorMapping struct {
	target  error
	status  int
	message string
}

// errorMappings is checked in order with errors.Is.
var errorMappings = []errorMapping{
	{target: auth.ErrBadCredentials, status: http.StatusUnauthorized},
	{target: auth.ErrIdentityNotFound, status: http.StatusNotFound},
	{target: auth.ErrRefreshTokenMissing, status: http.StatusNotFound},
	{target: auth.ErrRefreshTokenExpired, status: http.StatusUnauthorized, message: "Refresh token expired, generate again"},
	{target: auth.ErrTokenExpired, status: http.StatusUnauthorized},
	{target: auth.ErrTokenInvalid, status: http.StatusUnauthorized},
	{target: auth.ErrForbidden, status: http.StatusForbidden, message: msgAccessDenied},
	{target: auth.ErrUsernameExists, status: http.StatusConflict},
	{target: auth.ErrEmailExists, status: http.StatusConflict},
	{target: auth.ErrInvalidUsername, status: http.StatusBadRequest},
	{target: auth.ErrFederatedVerification, status: http.StatusUnauthorized, message: "Invalid Google ID token"},
	{target: rental.ErrRequestNotFound, status: http.StatusNotFound},
	{target: rental.ErrInvalidDates, status: http.StatusBadRequest},
	{target: property.ErrPropertyNotFound, status: http.StatusNotFound},
	{target: property.ErrNotWishlisted, status: http.StatusNotFound},
}

// classifyError maps err to a status and client-safe message. known is
// false for anything without a mapping, which becomes a generic 500.
func classifyError(err error) (status int, message string, known bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = m.target.Error()
			}
			return m.status, msg, true
		}
	}
	return http.StatusInternalServerError, msgInternal, false
}

// isExpiry reports whether err means a token ran out rather than being bad.
func isExpiry(err error) bool {
	return errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrRefreshTokenExpired)
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeText writes a plain-text response.
func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write([]byte(body))
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Error{ErrMessage: message})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// writeDomainError maps err through errorMappings. Unmapped errors are
// logged with op and the request id, and the client sees a generic 500.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message, known := classifyError(err)
	if !known {
		s.logger.Error(op+" failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
	}
	writeJSON(w, status, Error{ErrMessage: message, Expired: isExpiry(err)})
}
