//go:build wireinject
// +build wireinject

package main

import (
	"log/slog"

	"github.com/google/wire"

	"parley/config"
	"parley/internal/api"
	"parley/internal/database"
	"parley/internal/delivery"
	"parley/internal/history"
	"parley/internal/presence"
)

func initializeServer(cfg *config.Config, db *database.Database, log *slog.Logger) *api.Server {
	wire.Build(
		presence.NewTracker,
		provideStore,
		provideRegistry,
		provideUserRepository,
		provideUserService,
		provideJWT,
		delivery.NewEngine,
		history.NewService,
		provideServer,
	)
	return &api.Server{}
}
