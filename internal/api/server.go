package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"parley/internal/delivery"
	"parley/internal/history"
	"parley/internal/sessions"
	"parley/internal/user"
	"parley/pkg/jwt"
)

type Server struct {
	router   *mux.Router
	engine   *delivery.Engine
	history  *history.Service
	users    *user.Service
	registry *sessions.Registry
	tokens   *jwt.JWT
	log      *slog.Logger
}

func NewServer(
	engine *delivery.Engine,
	historyService *history.Service,
	users *user.Service,
	registry *sessions.Registry,
	tokens *jwt.JWT,
	rateLimit int,
	log *slog.Logger,
) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		engine:   engine,
		history:  historyService,
		users:    users,
		registry: registry,
		tokens:   tokens,
		log:      log,
	}

	s.router.Use(LoggingMiddleware(log))
	s.router.Use(RateLimitMiddleware(rateLimit))

	s.router.HandleFunc("/healthz", s.healthCheck).Methods(http.MethodGet)
	s.router.HandleFunc("/register", s.registerUser).Methods(http.MethodPost)
	s.router.HandleFunc("/login", s.login).Methods(http.MethodPost)

	authed := s.router.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(tokens))
	authed.HandleFunc("/logout", s.logout).Methods(http.MethodPost)
	authed.HandleFunc("/users", s.listUsers).Methods(http.MethodGet)
	authed.HandleFunc("/history/{peer}", s.directHistory).Methods(http.MethodGet)
	authed.HandleFunc("/group_history", s.groupHistory).Methods(http.MethodGet)
	authed.HandleFunc("/messages/{id}", s.deleteMessage).Methods(http.MethodDelete)
	authed.HandleFunc("/messages/seen/{sender}", s.markSeen).Methods(http.MethodPost)
	authed.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
