package main

import (
	"log"

	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/server"
	"habit-gallery/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	telemetry.SetLevel(cfg.LogLevel)

	r, err := server.NewRouter(cfg)
	if err != nil {
		log.Fatalf("router error: %v", err)
	}

	addr := server.Addr(cfg.Port)
	telemetry.Info("devserver.start", map[string]any{
		"addr":      addr,
		"store_dir": cfg.LocalStoreDir,
		"provider":  cfg.LLMProvider,
	})

	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
