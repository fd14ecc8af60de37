package dashboard

import (
	"net/http"

	"github.com/markb/shopdash/internal/admin"
	"github.com/markb/shopdash/internal/apperr"
	"github.com/markb/shopdash/internal/auth"
	"github.com/markb/shopdash/internal/log"
)

const (
	msgRegistered     = "Admin registered"
	msgLoginSucceeded = "Login successful"
)

// registerRequest is the JSON body for registration requests.
type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// registerResponse is returned after a successful registration.
type registerResponse struct {
	Message string           `json:"message"`
	Admin   admin.PublicView `json:"admin"`
}

// loginRequest is the JSON body for login requests.
type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// loginResponse carries the session token and the admin it belongs to.
type loginResponse struct {
	Message string           `json:"message"`
	Token   string           `json:"token"`
	Admin   admin.PublicView `json:"admin"`
}

// meResponse describes the admin behind the presented token.
type meResponse struct {
	Admin admin.PublicView `json:"admin"`
}

// handleRegister creates an admin account.
//
// POST /api/auth/register
//
// Request body:
//
//	{
//	  "username": "alice",
//	  "email": "a@x.com",
//	  "password": "secret123"
//	}
//
// Response (201 Created):
//
//	{
//	  "message": "Admin registered",
//	  "admin": {"id": 1, "username": "alice", "email": "a@x.com"}
//	}
//
// Returns 400 for missing fields or an email already in use, and 500 for
// storage errors.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := bind(w, r, &req, auth.MsgFieldsRequired); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.auth.Register(r.Context(), auth.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if s.metrics != nil {
		s.metrics.CounterRegistrations.Inc()
	}
	writeJSON(w, http.StatusCreated, registerResponse{Message: msgRegistered, Admin: view})
}

// handleLogin exchanges credentials for a session token.
//
// POST /api/auth/login
//
// Request body:
//
//	{"email": "a@x.com", "password": "secret123"}
//
// Response (200 OK):
//
//	{
//	  "message": "Login successful",
//	  "token": "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...",
//	  "admin": {"id": 1, "username": "alice", "email": "a@x.com"}
//	}
//
// Returns 400 for missing fields, 401 for invalid credentials (the same
// body whether the email is unknown or the password wrong), and 500 for
// storage errors.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := bind(w, r, &req, auth.MsgCredentialsRequired); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.auth.Login(r.Context(), auth.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		if apperr.Is(err, apperr.KindAuthentication) {
			log.Info("login rejected", "remote", r.RemoteAddr)
			if s.metrics != nil {
				s.metrics.CounterLoginFailures.Inc()
			}
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message: msgLoginSucceeded,
		Token:   res.Token,
		Admin:   res.Admin,
	})
}

// handleMe returns the admin identified by the bearer token.
//
// GET /api/auth/me
//
// Requires a valid token; the guard has already rejected everything else.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, auth.MsgUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{Admin: claims.Admin()})
}
