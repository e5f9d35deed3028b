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

	"github.com/PixelPioneer1807/SmartPrepAI/internal/config"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/database"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/handlers"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/memory"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/middleware"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/repository"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/retry"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/router"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/services"
	"github.com/PixelPioneer1807/SmartPrepAI/internal/websocket"
)

func setupLogger(env string) *zap.Logger {
	var logger *zap.Logger
	if env == "development" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger := setupLogger(cfg.Env)
	defer logger.Sync()
	logger.Info("starting SmartPrep backend", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("postgres connected")

	// ──── Step 3: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir, logger); err != nil {
		logger.Fatal("database migration failed", zap.Error(err))
	}

	// ──── Step 4: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	defer redisClients.Close()
	logger.Info("redis connected")

	// ──── Step 5: Initialize Gemini Client ────
	gemini, err := services.NewGeminiService(ctx, services.GeminiConfig{
		APIKey:         cfg.GeminiAPIKey,
		Model:          cfg.GeminiModel,
		EmbeddingModel: cfg.GeminiEmbeddingModel,
		Temperature:    cfg.GeminiTemperature,
		ConcurrentReqs: cfg.GeminiConcurrentReqs,
	}, logger)
	if err != nil {
		logger.Fatal("gemini client initialization failed", zap.Error(err))
	}
	defer gemini.Close()
	logger.Info("gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Step 6: Mistake Memory ────
	mistakes, err := memory.NewStore(cfg.VectorStorePath, gemini, cfg.MemoryCacheSize, logger)
	if err != nil {
		logger.Fatal("mistake memory initialization failed", zap.Error(err))
	}
	logger.Info("mistake memory ready", zap.String("path", cfg.VectorStorePath))

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	sessionRepo := repository.NewSessionRepo(redisClients.Session, cfg.SessionTTL)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, cfg.JWTTTL)
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxRetries
	policy.InitialInterval = cfg.RetryInitialInterval

	authService := services.NewAuthService(userRepo, sessionRepo, jwtAuth, cfg.JWTTTL, logger)
	analyticsService := services.NewAnalyticsService(userRepo, attemptRepo, mistakes, logger)
	orchestrator := services.NewOrchestrator(services.OrchestratorDeps{
		Users:     userRepo,
		Attempts:  attemptRepo,
		Sessions:  sessionRepo,
		Memory:    mistakes,
		Generator: services.NewGenerator(gemini, policy, logger),
		Analytics: analyticsService,
		Progress:  services.NewRedisPublisher(redisClients.PubSub, logger),
		TopK:      cfg.RAGTopK,
	}, logger)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService, logger)
	userHandler := handlers.NewUserHandler(authService, logger)
	quizHandler := handlers.NewQuizHandler(orchestrator, logger)
	dashboardHandler := handlers.NewDashboardHandler(analyticsService, logger)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, cfg.FrontendURL, logger)

	// ──── Step 8: Start HTTP Server ────
	r := router.New(ctx, jwtAuth, authHandler, userHandler, quizHandler, dashboardHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// Generation runs inside the request and may retry several LLM calls.
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		wsHub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("SmartPrep backend ready",
		zap.String("api", fmt.Sprintf("http://localhost:%s/api/v1", cfg.Port)),
		zap.String("ws", fmt.Sprintf("ws://localhost:%s/api/v1/ws", cfg.Port)))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
