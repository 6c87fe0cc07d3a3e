package main

import (
	"fmt"
	"log"
	"net/http"

	"formbridge/internal/api"
	"formbridge/internal/api/handlers"
	"formbridge/internal/api/middleware"
	"formbridge/internal/engine/accounts"
	"formbridge/internal/engine/notify"
	"formbridge/internal/engine/tokens"
	"formbridge/internal/engine/watch"
	"formbridge/internal/pkg/logger"
	"formbridge/internal/platform/auth"
	"formbridge/internal/platform/config"
	"formbridge/internal/platform/database"
	"formbridge/internal/platform/google"
	"formbridge/internal/platform/rcchat"
	"formbridge/internal/platform/repositories"
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

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	subRepo := repositories.NewSubscriptionRepository(db)

	// Provider clients
	oauthClient := google.NewOAuthClient(cfg.Google, cfg.App.ServerURL+"/oauth-callback")
	newFormsClient := func(accessToken string) *google.Client {
		return google.NewClient(cfg.Google, accessToken)
	}
	chatClient := rcchat.NewClient(cfg.Notifications.PostTimeout)

	// Engine
	guard := tokens.NewGuard(oauthClient, userRepo)
	registry := watch.NewRegistry(userRepo, subRepo, func(accessToken string) watch.FormsAPI {
		return newFormsClient(accessToken)
	})
	dispatcher := notify.NewDispatcher(userRepo, subRepo, guard, func(accessToken string) notify.FormsAPI {
		return newFormsClient(accessToken)
	}, chatClient)
	accountsSvc := accounts.NewService(userRepo, subRepo, func(accessToken string) accounts.ProviderAPI {
		return newFormsClient(accessToken)
	}, oauthClient)

	// Services
	tokenSvc := auth.NewTokenService(cfg.JWT)

	// Handlers
	authHandler := handlers.NewAuthHandler(oauthClient, accountsSvc, userRepo, guard, tokenSvc)
	subscriptionHandler := handlers.NewSubscriptionHandler(userRepo, registry, guard, tokenSvc, newFormsClient)
	notificationHandler := handlers.NewNotificationHandler(dispatcher, cfg.Notifications.SharedSecret)
	maintainHandler := handlers.NewMaintainHandler(userRepo, cfg.Maintain.Token)
	healthHandler := handlers.NewHealthHandler(db)

	// Middleware
	refererMiddleware := middleware.NewRefererMiddleware(cfg.App.ServerURL)

	router := api.NewRouter(&api.Dependencies{
		AuthHandler:         authHandler,
		SubscriptionHandler: subscriptionHandler,
		NotificationHandler: notificationHandler,
		MaintainHandler:     maintainHandler,
		HealthHandler:       healthHandler,
		RefererMiddleware:   refererMiddleware,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("Server starting on %s", addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
