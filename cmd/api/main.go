package main

import (
	"context"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/bitecare/internal/api"
	"stealthcompany.com/bitecare/internal/config"
	"stealthcompany.com/bitecare/internal/dal"
	"stealthcompany.com/bitecare/internal/metrics"
	"stealthcompany.com/bitecare/internal/orchestrator"
	"stealthcompany.com/bitecare/internal/schedule"
	"stealthcompany.com/bitecare/pkg/zerolog_config"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	zerolog_config.SetAppPrefix("bitecare-api")
	if err := zerolog_config.StartupWithEnv(cfg.ElasticsearchURL, "logs", cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().Msg("Starting bitecare-api service")

	ctx, cancel := orchestrator.NewSignalHandler().HandleSignals(context.Background())
	defer cancel()

	metrics.Configure(cfg.BusinessMetrics, cfg.SystemMetrics)
	metrics.StartSystemMetrics(15*time.Second, ctx.Done())

	clock, err := schedule.NewSystemClock(cfg.ScheduleTimezone)
	if err != nil {
		log.Fatal().Err(err).Str("timezone", cfg.ScheduleTimezone).Msg("Invalid schedule timezone")
	}

	conn, err := dal.NewConnection(cfg.Couchbase)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Couchbase")
	}
	defer func() {
		log.Info().Msg("Closing database connection...")
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database connection")
		}
	}()

	// Wait for case ingestion to complete before serving
	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Minute)
	err = dal.NewIngestionStatusModel(conn).WaitForIngestion(waitCtx, 5*time.Second)
	waitCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wait for case ingestion")
	}

	repo := dal.NewRepository(conn)
	engine := schedule.NewEngine(clock.Location)

	refresher := orchestrator.NewRefresher(repo, engine, clock, cfg.RefreshInterval)
	refresher.Start(ctx)

	handler := api.NewHandler(repo, engine, clock)
	handler.UseCache(refresher)

	router := api.SetupRoutes(handler, cfg.JWTSecret)

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.APIPort).
			Str("timezone", cfg.ScheduleTimezone).
			Msg("Server starting")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().
				Err(err).
				Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("API service shutdown complete")
}
