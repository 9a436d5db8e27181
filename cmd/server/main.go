package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ikramov/sitebot/internal/config"
	"github.com/ikramov/sitebot/internal/database"
	"github.com/ikramov/sitebot/internal/logger"
	"github.com/ikramov/sitebot/internal/notifier"
	"github.com/ikramov/sitebot/internal/repository"
	"github.com/ikramov/sitebot/internal/web"
)

func main() {
	// 1. Load config
	cfg := config.Load()

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting site backend")

	if !cfg.IsConfigured() {
		log.Warn().Msg("telegram bot not fully configured, notifications will be skipped")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database
	var store web.ContactStore
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("failed to open database, submissions will not be persisted")
	} else {
		store = repository.NewContactMessagesRepository(db)
	}

	// 5. Initialize bot notifier
	sender := notifier.New(cfg)

	// 6. Register the webhook so Telegram starts delivering updates
	if cfg.IsConfigured() {
		if sender.SetWebhook(ctx) {
			log.Info().Str("url", cfg.WebhookURL).Msg("webhook registered")
		} else {
			log.Warn().Msg("webhook registration failed, incoming updates disabled")
		}
	}

	// 7. Initialize HTTP server
	handler := web.NewHandler(sender, store)
	server := web.NewServer(cfg.HTTPPort, web.NewRouter(handler))

	log.Info().Int("port", cfg.HTTPPort).Msg("starting web server")
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// 8. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("shutdown complete")
}
