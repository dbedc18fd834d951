package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cristian1110/nipponflex-saas-sub000/internal/agents"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/api/router"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/appointments"
	appconfig "github.com/cristian1110/nipponflex-saas-sub000/internal/config"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/conversation"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/http/handlers"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/instances"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/knowledge"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/leads"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/media"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/messaging"
	observemetrics "github.com/cristian1110/nipponflex-saas-sub000/internal/observability/metrics"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/usage"
	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting nipponflex API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres unreachable", "error", err)
		os.Exit(1)
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() { _ = redisClient.Close() }()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, caches and counters degraded", "error", err)
	}

	openaiConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	openaiClient := openai.NewClientWithConfig(openaiConfig)

	// Stores
	instanceStore := instances.NewStore(pool)
	leadStore := leads.NewStore(pool)
	agentStore := agents.NewStore(pool)
	turnStore := conversation.NewTurnStore(pool, nil)
	appointmentStore := appointments.NewStore(pool)
	knowledgeStore := knowledge.NewStore(pool)
	usageStore := usage.NewStore(pool, redisClient)

	// Collaborators
	gateway := messaging.NewClient(cfg.EvolutionBaseURL, cfg.EvolutionAPIKey,
		messaging.WithLogger(logger))
	transcriber := media.NewOpenAITranscriber(openaiClient, cfg.TranscriptionModel)
	describer := media.NewOpenAIDescriber(openaiClient, cfg.VisionModel)
	ingest := media.NewIngestor(gateway, transcriber, describer, logger)
	historyCache := conversation.NewHistoryCache(redisClient, turnStore, nil)
	llm := conversation.NewLLMService(openaiClient, cfg.ChatModel, logger)
	retriever := knowledge.NewRetriever(knowledgeStore, openaiClient, cfg.EmbeddingModel, logger)
	executor := appointments.NewExecutor(appointmentStore, logger)
	dispatcher := messaging.NewDispatcher(messaging.DispatcherConfig{
		Gateway:      gateway,
		Synthesizer:  messaging.NewOpenAISynthesizer(openaiClient, cfg.SpeechModel),
		VoiceEnabled: cfg.VoiceEnabled,
		DelayMin:     cfg.SendDelayMin,
		DelayMax:     cfg.SendDelayMax,
		Logger:       logger,
	})
	pipelineMetrics := observemetrics.NewPipelineMetrics(nil)

	webhookHandler := handlers.NewWebhookHandler(handlers.WebhookConfig{
		Config:     cfg,
		Instances:  instanceStore,
		Leads:      leadStore,
		Agents:     agents.NewSelector(agentStore),
		Ingest:     ingest,
		History:    historyCache,
		Turns:      turnStore,
		LLM:        llm,
		Retriever:  retriever,
		Executor:   executor,
		Dispatcher: dispatcher,
		Usage:      usageStore,
		Metrics:    pipelineMetrics,
		Logger:     logger,
	})
	remindersHandler := handlers.NewRemindersHandler(handlers.RemindersConfig{
		Secret:    cfg.WorkerSecret,
		Store:     appointmentStore,
		Instances: instanceStore,
		Sender:    gateway,
		Logger:    logger,
	})

	r := router.New(&router.Config{
		Logger:         logger,
		Webhook:        webhookHandler,
		Reminders:      remindersHandler,
		Health:         handlers.NewHealthHandler(pool, cfg.Version),
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
