// Package main runs a single market reconciliation pass, for cron and
// one-off operations.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/predictedpress/backend/internal/bounty"
	"github.com/predictedpress/backend/internal/config"
	"github.com/predictedpress/backend/internal/lease"
	"github.com/predictedpress/backend/internal/polymarket"
	"github.com/predictedpress/backend/internal/storage"
	syncer "github.com/predictedpress/backend/internal/sync"
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := storage.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer store.Close(ctx)

	var runLease syncer.Lease
	if cfg.RedisAddr != "" {
		redisLease, err := lease.New(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer redisLease.Close()
		runLease = redisLease
	}

	syncConfig := syncer.DefaultConfig()
	syncConfig.BatchSize = cfg.FeedBatchSize
	syncConfig.MinVolume = cfg.MinVolume
	syncConfig.MinChange = cfg.MinChange
	syncConfig.Retention = cfg.Retention
	syncConfig.PricePointBucket = cfg.PricePointBucket
	syncConfig.LeaseTTL = cfg.LeaseTTL

	reconciler := syncer.NewReconciler(polymarket.NewClient(), store, bounty.NewEngine(store), runLease, syncConfig)

	result, err := reconciler.Run(ctx)
	if errors.Is(err, syncer.ErrRunInProgress) {
		log.Warn().Msg("Another sync run is in progress, nothing to do")
		return
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Sync run failed")
	}

	log.Info().
		Int("fetched", result.Fetched).
		Int("reconciled", result.Reconciled).
		Int("errors", result.Errors).
		Int("bounties_minted", result.BountiesMinted).
		Int64("points_pruned", result.PointsPruned).
		Msg("Sync run complete")
}
