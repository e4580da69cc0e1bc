package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/api"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/auth"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/books"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/chat"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/config"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/database"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/llm"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/middleware"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/profile"
	iredis "github.com/Clayjohnson75/Bookshelfapp-sub000/internal/redis"
	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("validating config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// PostgreSQL
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.MigrationsPath != "" {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
	}

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Collaborators
	resolver := auth.NewResolver(cfg.JWT.Secret)
	profileRepo := profile.NewRepository(pool)
	entitlements := profile.NewEntitlementGate(profileRepo, redisClient)
	bookRepo := books.NewRepository(pool)
	llmClient := llm.NewClient(cfg.LLM)

	// Pipeline
	classifier := chat.NewClassifier(llmClient, cfg.LLM.ClassifierTimeout)
	targets := chat.NewTargetResolver(profileRepo)
	engine := chat.NewEngine(bookRepo,
		chat.NewSemanticRanker(llmClient, cfg.LLM.RetrievalTimeout),
		&chat.WeightedRanker{},
	)
	generator := chat.NewGenerator(llmClient, cfg.LLM.GeneratorTimeout, cfg.LLM.Temperature)
	svc := chat.NewService(classifier, targets, engine, generator, chat.NewSafetyGate())
	handler := chat.NewHandler(svc, entitlements, llmClient)

	rateLimiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSec)

	// Router
	router := api.NewRouter(pool, redisClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.CORS.AllowedOrigins,
		ChatRateLimiter:    rateLimiter.Middleware,
	}, api.HandlerSet{
		Chat:           handler.Ask,
		AuthMiddleware: auth.Middleware(resolver),
	})

	// Start server
	srv := server.New(cfg.Server, router)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
