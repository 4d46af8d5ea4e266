package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"parley/infrastructure"
)

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"username": u.Username})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	u, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(w, err)
		return
	}

	token, err := s.tokens.GenerateToken(u.Username)
	if err != nil {
		s.log.Error("failed to generate token", "user", u.Username, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	username := Identity(r.Context())
	s.engine.Logout(username)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	online, offline, err := s.users.SplitByPresence(r.Context(), Identity(r.Context()))
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string][]string{
		"online":  online,
		"offline": offline,
	})
}

func (s *Server) directHistory(w http.ResponseWriter, r *http.Request) {
	peer := mux.Vars(r)["peer"]
	msgs, err := s.history.DirectBetween(r.Context(), Identity(r.Context()), peer)
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, msgs)
}

func (s *Server) groupHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.history.Group(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, msgs)
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	if err := s.engine.Delete(r.Context(), Identity(r.Context()), id); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) markSeen(w http.ResponseWriter, r *http.Request) {
	sender := mux.Vars(r)["sender"]
	if _, err := s.engine.MarkSeen(r.Context(), Identity(r.Context()), sender); err != nil {
		s.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to encode response", "err", err)
	}
}

// respondError maps the infrastructure error kinds to status codes.
// Persistence failures stay opaque: logged in full, reported as a bare
// internal error.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, infrastructure.ErrNotFound), errors.Is(err, infrastructure.ErrUserNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, infrastructure.ErrUnauthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, infrastructure.ErrUnauthenticated),
		errors.Is(err, infrastructure.ErrInvalidCredentials),
		errors.Is(err, infrastructure.ErrMissingToken),
		errors.Is(err, infrastructure.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, infrastructure.ErrUserAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, infrastructure.ErrWeakPassword):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.log.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
