package main

import (
	"context"
	"log"
	"time"

	"formbridge/internal/engine/tokens"
	"formbridge/internal/engine/watch"
	"formbridge/internal/pkg/logger"
	"formbridge/internal/platform/config"
	"formbridge/internal/platform/database"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/repositories"
	"formbridge/internal/workers"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging)

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	userRepo := repositories.NewUserRepository(db)
	subRepo := repositories.NewSubscriptionRepository(db)
	oauthClient := google.NewOAuthClient(cfg.Google, cfg.App.ServerURL+"/oauth-callback")
	guard := tokens.NewGuard(oauthClient, userRepo)

	renewer := workers.NewRenewer(userRepo, subRepo, guard, func(accessToken string) watch.FormsAPI {
		return google.NewClient(cfg.Google, accessToken)
	}, cfg.Renewal.Lookahead)

	interval := cfg.Renewal.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}

	log.Printf("Starting watch renewal worker, interval %v", interval)

	// One sweep at startup, then on the ticker.
	if err := renewer.Run(context.Background()); err != nil {
		log.Printf("Renewal sweep failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if err := renewer.Run(context.Background()); err != nil {
			log.Printf("Renewal sweep failed: %v", err)
		}
	}
}
