package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"grana/internal/ai"
	"grana/internal/amqp"
	"grana/internal/cache"
	"grana/internal/config"
	apphttp "grana/internal/http"
	"grana/internal/services"
	"grana/internal/storage"
)

func main() {
	// .env is for local development; missing files are fine.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without it transactions are simply not mirrored.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		events = client
		logger.Info("AMQP publisher initialized", "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled, sync events will not be published")
	}

	suggester, err := ai.NewSuggester(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize category suggester", "error", err)
		os.Exit(1)
	}
	if suggester == nil {
		logger.Info("Gemini disabled, category suggestions will use the fallback")
	}

	txService := services.NewTransactionService(repo, events)

	cacheManager := cache.NewManager()

	srv := apphttp.NewServer(apphttp.Options{
		Addr:         ":" + cfg.Port,
		Tokens:       cfg.APITokens,
		CacheSize:    cfg.CacheSize,
		CacheTTL:     cfg.CacheTTL,
		CacheManager: cacheManager,
	}, txService, repo, suggester)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	cacheManager.Start(cfg.CacheCleanupInterval)
	defer cacheManager.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting grana server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
