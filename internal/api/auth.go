package api

import (
	"net/http"

	"github.com/nerrad567/rentwise-core/internal/auth"
)

type credentialsRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type reLoginRequest struct {
	UserName string `json:"userName" validate:"required"`
}

type registerUserRequest struct {
	UserName  string `json:"userName" validate:"required,max=64"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	PhoneNo   string `json:"phoneNo"`
	IsOwner   bool   `json:"isOwner"`
}

type googleLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// sessionResponse is the body of every successful sign-in. Role is the
// token authority, e.g. "ROLE_OWNER".
type sessionResponse struct {
	ID           int64  `json:"id,omitempty"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Username     string `json:"username"`
	Role         string `json:"role"`
}

func newSessionResponse(s *auth.Session) sessionResponse {
	return sessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Username:     s.Username,
		Role:         s.Role.Authority(),
	}
}

// handleLogin signs in with a password. A refresh token must already be
// on record (see handleGenerateRefreshToken).
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.gateway.Login(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.writeDomainError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// handleGenerateRefreshToken checks the password and issues both tokens.
func (s *Server) handleGenerateRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.gateway.IssueRefreshToken(r.Context(), req.UserName, req.Password)
	if err != nil {
		s.writeDomainError(w, r, "refresh token issuance", err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(session))
}

// handleRefreshToken trades a refresh token for a new access token.
func (s *Server) handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshTokenRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.gateway.RenewAccessToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeDomainError(w, r, "access token renewal", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// handleReLogin mints an access token for a username that still has a
// live refresh token on record.
func (s *Server) handleReLogin(w http.ResponseWriter, r *http.Request) {
	var req reLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.gateway.ReAuthenticate(r.Context(), req.UserName)
	if err != nil {
		s.writeDomainError(w, r, "re-login", err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// handleRegisterUser creates a user. Failures answer 207 with
// canProceed=false, which the web client relies on.
func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if berr := bindBody(r, &req); berr != nil {
		writeRegistrationFailed(w, berr.Error())
		return
	}

	_, err := s.gateway.RegisterUser(r.Context(), auth.RegisterUserInput{
		Username:  req.UserName,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		PhoneNo:   req.PhoneNo,
		IsOwner:   req.IsOwner,
	})
	if err != nil {
		_, message, known := classifyError(err)
		if !known {
			s.logger.Error("user registration failed", "username", req.UserName, "error", err)
		}
		writeRegistrationFailed(w, message)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "User registered successfully!!!",
		"canProceed": true,
	})
}

func writeRegistrationFailed(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusMultiStatus, map[string]any{
		"errMessage":  "User Registration failed!!",
		"detailError": detail,
		"canProceed":  false,
	})
}

// handleRegisterAdmin creates an admin. Both outcomes are plain text.
func (s *Server) handleRegisterAdmin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if berr := bindBody(r, &req); berr != nil {
		writeText(w, http.StatusBadRequest, "Admin registration failed: "+berr.Error())
		return
	}

	admin, err := s.gateway.RegisterAdmin(r.Context(), req.UserName, req.Password)
	if err != nil {
		_, message, known := classifyError(err)
		if !known {
			s.logger.Error("admin registration failed", "username", req.UserName, "error", err)
		}
		writeText(w, http.StatusBadRequest, "Admin registration failed: "+message)
		return
	}

	writeText(w, http.StatusCreated, "Admin registered successfully with username: "+admin.Username)
}

// handleGoogleLogin signs in with a Google ID token, creating the user on
// first sight.
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req googleLoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, err := s.gateway.FederatedLogin(r.Context(), req.IDToken)
	if err != nil {
		s.writeDomainError(w, r, "google login", err)
		return
	}

	resp := newSessionResponse(session)
	resp.ID = session.ID
	writeJSON(w, http.StatusOK, resp)
}
