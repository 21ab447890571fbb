package main

import (
	"log"

	"recruit-backend/internal/bootstrap"
	"recruit-backend/internal/shared/config"
	"recruit-backend/internal/shared/server"
	"recruit-backend/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	addr := server.Addr(cfg.Port)
	telemetry.Info("api.starting", map[string]any{"addr": addr, "env": cfg.Env})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
