package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nutribot/internal/admin"
	"nutribot/internal/agent"
	"nutribot/internal/api"
	"nutribot/internal/cache"
	"nutribot/internal/chatbot"
	"nutribot/internal/config"
	"nutribot/internal/credential"
	"nutribot/internal/db"
	"nutribot/internal/llm"
	"nutribot/internal/logger"
	"nutribot/internal/ratelimit"
	"nutribot/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// app is the wired service: the router plus everything that needs closing on shutdown.
type app struct {
	router    *gin.Engine
	client    *llm.FallbackClient
	redis     *redis.Client
	scheduler *scheduler.Scheduler
}

// newApp builds every component from cfg and starts the scheduler.
func newApp(cfg *config.Config, log *slog.Logger) (*app, error) {
	database, err := db.NewService(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}
	log.Info("Database initialized", "type", cfg.Database.Type)

	pool := credential.NewPool(cfg.LLM.Keys, cfg.LLM.MaxErrorsPerKey, log)

	var factory llm.Factory
	var prober credential.Prober
	switch cfg.LLM.Provider {
	case "gemini":
		factory = llm.GeminiFactory(cfg.LLM.Model)
	default:
		httpClient := &http.Client{Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second}
		factory = llm.GroqFactory(
			llm.WithModel(cfg.LLM.Model),
			llm.WithBaseURL(cfg.LLM.BaseURL),
			llm.WithHTTPClient(httpClient),
		)
		baseURL := cfg.LLM.BaseURL
		if baseURL == "" {
			baseURL = llm.DefaultGroqBaseURL
		}
		prober = credential.NewHTTPProber(baseURL)
	}
	client := llm.NewFallbackClient(pool, factory, log)

	a := &app{client: client}

	var store cache.Store
	var limiter ratelimit.Limiter
	var memoryStore *cache.MemoryStore
	var memoryLimiter *ratelimit.MemoryLimiter
	if cfg.Redis.Enabled() {
		rdb, err := newRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		a.redis = rdb
		store = cache.NewRedisStore(rdb, cfg.Redis.Prefix)
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.Redis.Prefix, time.Minute)
		log.Info("Using redis for recipe cache and rate limiting")
	} else {
		memoryStore = cache.NewMemoryStore()
		memoryLimiter = ratelimit.NewMemoryLimiter(time.Minute)
		store = memoryStore
		limiter = memoryLimiter
	}

	agents := agent.NewSet(client, store, time.Duration(cfg.Chatbot.RecipeCacheHours)*time.Hour, database, log)
	memory := chatbot.NewMemory(cfg.Chatbot.MaxUsers)
	manager := chatbot.NewManager(agents, memory, database, log)

	server := api.NewServer(api.Deps{
		Config:  cfg,
		DB:      database,
		Pool:    pool,
		Client:  client,
		Agents:  agents,
		Chat:    manager,
		Limiter: limiter,
		Logger:  log,
	})

	router := gin.New()
	router.Use(api.RequestID(), api.CustomRecovery(log))
	if cfg.Debug {
		router.Use(gin.Logger())
	}
	server.SetupRoutes(router)
	admin.SetupRoutes(router, admin.NewHandler(pool, prober, memory, log), cfg)
	a.router = router

	a.scheduler = scheduler.NewScheduler(cfg.Scheduler, scheduler.Jobs{
		Pool:    pool,
		Prober:  prober,
		Memory:  memory,
		Cache:   memoryStore,
		Limiter: memoryLimiter,
	}, log)
	if err := a.scheduler.Start(); err != nil {
		a.Close()
		return nil, fmt.Errorf("error starting scheduler: %w", err)
	}
	log.Info("Scheduler started")

	return a, nil
}

func newRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return redis.NewClient(opts), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), nil
}

// Close stops background work and releases upstream clients.
func (a *app) Close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.client != nil {
		_ = a.client.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// shutdown drains in-flight requests before the upstream clients they may use are closed.
func shutdown(server *http.Server, a *app, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := server.Shutdown(ctx)
	a.Close()
	return err
}

func main() {
	cfg, warning, err := config.LoadConfig("config.yaml")
	if err != nil {
		slog.Error("Error loading configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Debug, cfg.LogFormat)
	log.Info("Logger initialized", "debug_mode", cfg.Debug)
	if warning != "" {
		log.Warn(warning)
	}

	a, err := newApp(cfg, log)
	if err != nil {
		log.Error("Error starting service", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: a.router,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	if err := shutdown(server, a, 5*time.Second); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exiting")
}
