package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/bitecare/internal/config"
	"stealthcompany.com/bitecare/internal/dal"
	"stealthcompany.com/bitecare/internal/ingest"
	"stealthcompany.com/bitecare/internal/metrics"
	"stealthcompany.com/bitecare/internal/orchestrator"
	"stealthcompany.com/bitecare/pkg/zerolog_config"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	zerolog_config.SetAppPrefix("bitecare-ingest")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().Str("source", cfg.CaseSourceURL).Msg("Starting bitecare-ingest service")

	ctx, cancel := orchestrator.NewSignalHandler().HandleSignals(context.Background())
	defer cancel()

	metrics.Configure(cfg.BusinessMetrics, cfg.SystemMetrics)

	conn, err := dal.NewConnection(cfg.Couchbase)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Couchbase")
	}
	defer conn.Close()

	if err := dal.NewResourceModel(conn).EnsureCollections(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare collections")
	}

	hostname, _ := os.Hostname()
	runner := orchestrator.NewIngestRunner(
		dal.NewIngestLocker(conn, "ingest@"+hostname, time.Hour),
		dal.NewIngestionStatusModel(conn),
		ingest.NewClient(cfg.CaseSourceURL, cfg.IngestTimeout, dal.NewRepository(conn)),
	)

	if err := runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Case data ingestion failed")
		conn.Close()
		os.Exit(1)
	}
}
