package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WeShipHQ/panda-monopoly-indexer/config"
	"github.com/WeShipHQ/panda-monopoly-indexer/extractor"
	"github.com/WeShipHQ/panda-monopoly-indexer/health"
	"github.com/WeShipHQ/panda-monopoly-indexer/ledger"
	"github.com/WeShipHQ/panda-monopoly-indexer/logging"
	"github.com/WeShipHQ/panda-monopoly-indexer/metrics"
	"github.com/WeShipHQ/panda-monopoly-indexer/model"
	"github.com/WeShipHQ/panda-monopoly-indexer/queue"
	"github.com/WeShipHQ/panda-monopoly-indexer/source"
	"github.com/WeShipHQ/panda-monopoly-indexer/store"
	"github.com/WeShipHQ/panda-monopoly-indexer/writer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logging.NewComponentLogger("main").Fatal().Err(err).Msg("failed to load config")
	}
	logging.SetGlobalLevel(cfg.Logging.Level)

	log := logging.NewComponentLogger("main")
	log.Info().
		Str("service", cfg.Service.Name).
		Str("postgres", cfg.Postgres.Host).
		Str("source", cfg.Source.Endpoint).
		Str("ledger", cfg.Ledger.Endpoint).
		Msg("starting indexer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Connect(ctx, cfg.GetPostgresDSN(), cfg.Postgres.MaxConns, logging.NewComponentLogger("store"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer st.Close()
	log.Info().Msg("connected to PostgreSQL")

	stats := metrics.NewStats()

	healthServer := health.NewServer(cfg.Service.HealthPort, stats, st, logging.NewComponentLogger("health"))
	healthServer.Start()

	q := queue.New(cfg.Queue.BufferSize, cfg.Queue.MaxAttempts, queue.Hooks{}, logging.NewComponentLogger("queue"))

	reader := ledger.NewHTTPReader(cfg.Ledger.Endpoint)
	w := writer.New(
		reader,
		st,
		q,
		stats,
		logging.NewComponentLogger("writer"),
		cfg.Enrichment.GameFetchAttempts,
		time.Duration(cfg.Enrichment.BackoffBaseMillis)*time.Millisecond,
	)

	ext := extractor.New(logging.NewComponentLogger("extractor"), stats)
	src := source.NewHTTPSource(
		cfg.Source.Endpoint,
		time.Duration(cfg.Source.PollIntervalMillis)*time.Millisecond,
		cfg.Source.BatchLimit,
		st,
		logging.NewComponentLogger("source"),
	)

	go func() {
		err := src.Run(ctx, func(tx model.TransactionMeta) {
			records := ext.Extract(tx)
			stats.AddRecordsExtracted(len(records))
			for _, rec := range records {
				q.Enqueue(rec)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("transaction source stopped")
			cancel()
		}
	}()

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		q.Start(ctx, cfg.Queue.Workers, w.Process)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context cancelled")
	}

	log.Info().Msg("shutting down")
	cancel()
	q.Close()

	select {
	case <-workersDone:
	case <-time.After(10 * time.Second):
		log.Warn().Msg("workers did not drain in time")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("health server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}
