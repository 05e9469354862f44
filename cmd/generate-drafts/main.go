// Package main backfills AI drafts onto open bounties that have none.
package main

import (
	"context"
	"os"
	"time"

	"github.com/predictedpress/backend/internal/config"
	"github.com/predictedpress/backend/internal/content"
	"github.com/predictedpress/backend/internal/llm"
	"github.com/predictedpress/backend/internal/polymarket"
	"github.com/predictedpress/backend/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.LLMAPIKey == "" {
		log.Fatal().Msg("LLM_API_KEY is required for draft generation")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer store.Close(ctx)

	llmClient := llm.NewClient(llm.Config{
		APIKey:   cfg.LLMAPIKey,
		Endpoint: cfg.LLMEndpoint,
		Model:    cfg.LLMModel,
	})

	generator := content.NewGenerator(store, polymarket.NewClient(), llmClient)

	generated, err := generator.BackfillDrafts(ctx, cfg.DraftBatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Draft backfill failed")
	}

	log.Info().Int("generated", generated).Msg("Draft backfill complete")
}
