package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/analyzer"
	"github.com/safeguard-ai/safeguard/internal/broker"
	"github.com/safeguard-ai/safeguard/internal/cache"
	"github.com/safeguard-ai/safeguard/internal/chain"
	"github.com/safeguard-ai/safeguard/internal/chat"
	"github.com/safeguard-ai/safeguard/internal/models"
	"github.com/safeguard-ai/safeguard/internal/scorer"
	"github.com/safeguard-ai/safeguard/internal/server"
	"github.com/safeguard-ai/safeguard/internal/storage"
	"github.com/safeguard-ai/safeguard/pkg/config"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err), zap.String("path", "config.yaml"))
	}

	// Initialize storage
	var store storage.Store
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStore()
	} else {
		logger.Info("Using PostgreSQL storage")
		store, err = storage.NewPostgresStore(storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize result cache
	resultCache := cache.New(cfg.Cache.SweepInterval, cache.WithTTL(cfg.Cache.TTL))
	defer resultCache.Close()

	// Initialize chain client
	endpoints := make(map[models.Network]chain.NetworkEndpoint, len(cfg.Networks))
	for name, nc := range cfg.Networks {
		endpoints[models.Network(name)] = chain.NetworkEndpoint{
			RPCURL:         nc.RPCURL,
			ChainID:        nc.ChainID,
			ExplorerAPIURL: nc.ExplorerAPIURL,
			ExplorerAPIKey: nc.ExplorerAPIKey,
		}
	}
	chainClient, err := chain.NewClient(endpoints, logger)
	if err != nil {
		logger.Fatal("Failed to connect to chain RPC", zap.Error(err))
	}
	defer chainClient.Close()

	// Initialize inference broker
	inference := broker.NewClient(cfg.Broker.MarketplaceURL, cfg.Broker.APIKey, logger)

	// Initialize scorer
	var sc scorer.Scorer
	switch cfg.Scorer.Mode {
	case "remote":
		logger.Info("Using remote attested scoring",
			zap.String("preferredModel", cfg.Broker.PreferredModel))
		sc = scorer.NewRemote(inference, cfg.Broker.PreferredModel, logger)
	default:
		logger.Info("Using local heuristic scoring")
		sc = scorer.NewHeuristic()
	}

	// Initialize analyzer and chat manager
	a := analyzer.New(chainClient, sc, resultCache, store, logger)
	chatManager := chat.NewManager(chainClient, inference, cfg.Chat.SweepInterval, logger,
		chat.WithIdleTimeout(cfg.Chat.IdleTimeout),
		chat.WithMaxSessions(cfg.Chat.MaxSessions))
	defer chatManager.Close()

	// Initialize HTTP server
	srv := server.New(a, chatManager, resultCache, cfg.Server.Env, logger)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv,
		// Inference round trips can take minutes; keep write generous.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("Server started",
			zap.Int("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Env))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Server stopped")
}
