package api

import (
	"errors"
	"net/http"

	"github.com/hs170703/insightfull/pkg/auth"
)

// handleRegister handles POST /api/register with form fields username and
// password
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetailResponse(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	username, password := r.PostFormValue("username"), r.PostFormValue("password")
	if username == "" || password == "" {
		writeDetailResponse(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	if err := s.auth.Register(username, password); err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeDetailResponse(w, http.StatusBadRequest, "Username already registered")
			return
		}
		s.logger.Error("registration failed", "username", username, "error", err)
		writeDetailResponse(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	s.logger.Info("user registered", "username", username)
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "User registered successfully"})
}

// handleLogin handles POST /api/login and returns a bearer token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.AllowLogin(auth.ClientIP(r)) {
		writeDetailResponse(w, http.StatusTooManyRequests, "Too many login attempts")
		return
	}
	if err := r.ParseForm(); err != nil {
		writeDetailResponse(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	username, password := r.PostFormValue("username"), r.PostFormValue("password")

	token, err := s.auth.Login(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeDetailResponse(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		s.logger.Error("login failed", "username", username, "error", err)
		writeDetailResponse(w, http.StatusInternalServerError, "Login failed")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
