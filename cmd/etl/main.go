package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ejsimon0408/BostonWeatherETL/internal/adapter/csvfile"
	httpadapter "github.com/ejsimon0408/BostonWeatherETL/internal/adapter/http"
	kafkaadapter "github.com/ejsimon0408/BostonWeatherETL/internal/adapter/kafka"
	"github.com/ejsimon0408/BostonWeatherETL/internal/adapter/openmeteo"
	"github.com/ejsimon0408/BostonWeatherETL/internal/adapter/postgres"
	"github.com/ejsimon0408/BostonWeatherETL/internal/config"
	"github.com/ejsimon0408/BostonWeatherETL/internal/observability"
	"github.com/ejsimon0408/BostonWeatherETL/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if envErr == nil {
		logger.Debug(".env file loaded")
	}
	metrics := observability.NewMetrics()

	params, err := cfg.Params()
	if err != nil {
		logger.Error("invalid reconciliation parameters", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var historical pipeline.HistoricalSource
	switch cfg.HistoricalSource {
	case config.SourcePostgres:
		src, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to open historical database", "error", err)
			os.Exit(1)
		}
		defer src.Close()
		historical = src
	default:
		historical = csvfile.NewReader(cfg.HistoricalCSVPath, logger)
	}
	logger.Info("historical source configured", "kind", cfg.HistoricalSource)

	// Realtime is optional (feature-flagged via REALTIME_ENABLED).
	var realtime pipeline.RealtimeSource
	if cfg.RealtimeEnabled {
		client := openmeteo.NewClient(cfg, metrics, logger)
		realtime = openmeteo.NewCachedSource(client, cfg.LocationID, cfg.RealtimeCacheTTL, metrics)
		logger.Info("open-meteo realtime enabled", "cache_ttl", cfg.RealtimeCacheTTL, "timeout", cfg.OpenMeteoTimeout)
	} else {
		logger.Info("open-meteo realtime disabled")
	}

	var sinks pipeline.FanOut
	if cfg.OutputCSVPath != "" {
		sinks = append(sinks, csvfile.NewWriter(cfg.OutputCSVPath, logger))
	}
	var kafkaWriter *kafkaadapter.Writer
	if len(cfg.KafkaBrokers) > 0 {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		sinks = append(sinks, kafkaWriter)
	}
	if len(sinks) == 0 {
		logger.Warn("no sink configured; set OUTPUT_CSV_PATH or KAFKA_BROKERS to publish results")
	}

	p := pipeline.New(params, historical, realtime, sinks, logger, metrics,
		pipeline.WithBatchSize(cfg.BatchSize),
		pipeline.WithInterval(cfg.RunInterval),
		pipeline.WithPublishOnGateFailure(cfg.PublishOnGateFailure),
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
