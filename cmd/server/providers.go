package main

import (
	"log/slog"

	"parley/config"
	"parley/internal/api"
	"parley/internal/database"
	"parley/internal/delivery"
	"parley/internal/history"
	"parley/internal/message"
	"parley/internal/presence"
	"parley/internal/sessions"
	"parley/internal/user"
	"parley/pkg/jwt"
)

func provideStore(db *database.Database, log *slog.Logger) message.Store {
	return message.NewGormStore(db.DB, log)
}

func provideRegistry(cfg *config.Config, log *slog.Logger) *sessions.Registry {
	return sessions.NewRegistry(cfg.SessionBuffer, log)
}

func provideUserRepository(db *database.Database) user.Repository {
	return user.NewGormRepository(db.DB)
}

func provideUserService(repo user.Repository, tracker *presence.Tracker, cfg *config.Config, log *slog.Logger) *user.Service {
	return user.NewService(repo, tracker, cfg.MinPasswordEntropy, log)
}

func provideJWT(cfg *config.Config) *jwt.JWT {
	return jwt.NewJWT(cfg.JWTSecret, cfg.TokenTTL)
}

func provideServer(
	engine *delivery.Engine,
	historyService *history.Service,
	users *user.Service,
	registry *sessions.Registry,
	tokens *jwt.JWT,
	cfg *config.Config,
	log *slog.Logger,
) *api.Server {
	return api.NewServer(engine, historyService, users, registry, tokens, cfg.RateLimit, log)
}
