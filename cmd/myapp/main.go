package main

import (
	"context"
	"log"

	"partymatch/cfg"
	"partymatch/internal/app"

	_ "partymatch/docs"
)

// @title partymatch API
// @version 1.0
// @description Social matchmaking service: quests, parties, and peer ratings.
// @BasePath /
func main() {
	config, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	server, err := app.NewServer(ctx, config)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer server.Shutdown(ctx)

	if err := server.Run(config.HTTPAddr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
