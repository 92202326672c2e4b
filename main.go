package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	api "triagely-backend/cmd/api"
	accountDomain "triagely-backend/internal/account/domain"
	accountRepo "triagely-backend/internal/account/repository"
	authUsecase "triagely-backend/internal/auth/usecase"
	emailDelivery "triagely-backend/internal/email/delivery"
	emailDomain "triagely-backend/internal/email/domain"
	emailRepo "triagely-backend/internal/email/repository"
	emailScheduler "triagely-backend/internal/email/scheduler"
	emailUsecase "triagely-backend/internal/email/usecase"
	nlpDelivery "triagely-backend/internal/nlp/delivery"
	nlpUsecase "triagely-backend/internal/nlp/usecase"
	"triagely-backend/pkg/ai"
	"triagely-backend/pkg/config"
	"triagely-backend/pkg/database"
	"triagely-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(&accountDomain.Credential{}, &emailDomain.Message{}, &emailDomain.SyncHistory{}); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	credentialRepo := accountRepo.NewCredentialRepository(db)
	messageRepo := emailRepo.NewMessageRepository(db)
	syncHistoryRepo := emailRepo.NewSyncHistoryRepository(db)

	// Initialize Gmail service
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GmailRedirectURL, cfg.GmailScopes)

	// Initialize the sync engine
	refresher := emailUsecase.NewCredentialRefresher(credentialRepo)
	syncUsecase := emailUsecase.NewSyncUsecase(credentialRepo, messageRepo, refresher, gmailService)

	// Background fleet poller keeps every user's cache warm
	fleetScheduler := emailScheduler.NewFleetScheduler(
		credentialRepo,
		syncUsecase,
		syncHistoryRepo,
		cfg.PollInterval,
		cfg.PollInitialDelay,
		cfg.SyncMaxThreads,
		cfg.SyncConcurrency,
	)
	fleetScheduler.Start()
	defer fleetScheduler.Stop()

	// Initialize AI service for lazy enrichment
	aiService, err := ai.NewSummarizerService(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiApiKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Printf("[WARN] AI service unavailable, falling back to mock: %v", err)
		aiService = ai.NewMockService()
	}
	enrichUsecase := nlpUsecase.NewEnrichUsecase(messageRepo, aiService)

	// Bearer-token verification against the external identity provider
	verifier := authUsecase.NewVerifier(cfg.AuthJWKSURL, cfg.AuthIssuer, cfg.AuthAudience)

	// Initialize HTTP handlers
	gmailHandler := emailDelivery.NewGmailHandler(credentialRepo, messageRepo, syncHistoryRepo, syncUsecase, gmailService, cfg)
	nlpHandler := nlpDelivery.NewNLPHandler(enrichUsecase)
	handler := api.NewHandler(verifier, gmailHandler, nlpHandler)

	// Stop the poller cleanly on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("Shutting down...")
		fleetScheduler.Stop()
		os.Exit(0)
	}()

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
