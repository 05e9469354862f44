// Predicted Press - prediction market newsroom backend.
// Reconciles market snapshots and issues writing bounties on big moves.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/predictedpress/backend/internal/api"
	"github.com/predictedpress/backend/internal/bounty"
	"github.com/predictedpress/backend/internal/config"
	"github.com/predictedpress/backend/internal/content"
	"github.com/predictedpress/backend/internal/lease"
	"github.com/predictedpress/backend/internal/llm"
	"github.com/predictedpress/backend/internal/polymarket"
	"github.com/predictedpress/backend/internal/scheduler"
	"github.com/predictedpress/backend/internal/storage"
	syncer "github.com/predictedpress/backend/internal/sync"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().Msg("Predicted Press - Starting backend")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx := context.Background()

	// Initialize storage
	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer store.Close(ctx)

	// Initialize market feed client
	feed := polymarket.NewClient()
	log.Info().Msg("Polymarket client initialized")

	// Initialize LLM client
	var llmClient *llm.Client
	if cfg.LLMAPIKey != "" {
		llmClient = llm.NewClient(llm.Config{
			APIKey:   cfg.LLMAPIKey,
			Endpoint: cfg.LLMEndpoint,
			Model:    cfg.LLMModel,
		})
		log.Info().Str("model", cfg.LLMModel).Msg("LLM client initialized")
	} else {
		log.Warn().Msg("LLM client not initialized (no API key), drafts disabled")
	}

	// Initialize run lease
	var runLease syncer.Lease
	if cfg.RedisAddr != "" {
		redisLease, err := lease.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisLease.Close()
		runLease = redisLease
		log.Info().Str("addr", cfg.RedisAddr).Msg("Redis run lease initialized")
	} else {
		log.Warn().Msg("No Redis address, sync runs are not serialized across processes")
	}

	// Initialize bounty engine
	engine := bounty.NewEngine(store)

	// Initialize reconciler
	syncConfig := syncer.DefaultConfig()
	syncConfig.BatchSize = cfg.FeedBatchSize
	syncConfig.MinVolume = cfg.MinVolume
	syncConfig.MinChange = cfg.MinChange
	syncConfig.Retention = cfg.Retention
	syncConfig.PricePointBucket = cfg.PricePointBucket
	syncConfig.LeaseTTL = cfg.LeaseTTL

	reconciler := syncer.NewReconciler(feed, store, engine, runLease, syncConfig)
	log.Info().Msg("Market reconciler initialized")

	// Initialize draft generator
	generator := content.NewGenerator(store, feed, llmClient)

	// Initialize scheduler
	sched := scheduler.NewScheduler(scheduler.Options{
		Reconciler:     reconciler,
		Generator:      generator,
		Store:          store,
		SyncInterval:   cfg.SyncInterval,
		DraftInterval:  cfg.DraftInterval,
		DraftBatchSize: cfg.DraftBatchSize,
	})
	log.Info().Msg("Scheduler initialized")

	// Initialize API server
	apiServer := api.NewServer(store, reconciler, generator, sched, cfg.HTTPAddr)

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := apiServer.Start(); err != nil {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	sched.Start()

	log.Info().
		Str("api", cfg.HTTPAddr).
		Msg("Predicted Press backend running")

	// Wait for shutdown signal
	<-sigChan
	log.Info().Msg("Shutdown signal received")

	// Graceful shutdown
	shutdownCtx := context.Background()
	sched.Stop()
	apiServer.Shutdown(shutdownCtx)

	log.Info().Msg("Predicted Press backend stopped")
}
