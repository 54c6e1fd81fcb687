package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"burnoutwatch/config"
	"burnoutwatch/db"
	bhttp "burnoutwatch/http"
	"burnoutwatch/logging"
	"burnoutwatch/ml"
	"burnoutwatch/session"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: could not read .env: %v", err)
	}

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Options{Debug: cfg.Debug, Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	if cfg.SecretKey == config.DefaultSecretKey {
		logger.Warn("SECRET_KEY is the built-in default; set it in production")
	}

	ctx := context.Background()

	// 2. Initialize database
	store, err := db.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// 3. Load the classifier; the server runs without one
	var classifier ml.Classifier
	if model, err := ml.LoadModel(cfg.ModelPath); err != nil {
		logger.Warn("model not loaded, predictions disabled", zap.String("path", cfg.ModelPath), zap.Error(err))
	} else {
		classifier = model
		logger.Info("model loaded", zap.String("path", cfg.ModelPath))
	}

	sessionStore, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialize session store", zap.Error(err))
	}
	defer closeSessions()
	sessions := session.NewManager(sessionStore, cfg.SecretKey, cfg.SessionTTL)

	handlers := bhttp.NewHandlers(store, sessions, classifier, logger)

	// 4. Start HTTP server
	server := bhttp.NewServer(bhttp.ServerConfig{Addr: cfg.Addr()}, handlers.Routes(), logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}

func newSessionStore(ctx context.Context, cfg config.Config) (session.Store, func(), error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(cfg.SessionCacheSize, cfg.SessionTTL), func() {}, nil
	}
	client, err := session.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return session.NewRedisStore(client, cfg.SessionTTL), func() { client.Close() }, nil
}
