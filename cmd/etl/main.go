package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dwh-retrieval/internal/adapter/dwh"
	httpadapter "github.com/couchcryptid/dwh-retrieval/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/dwh-retrieval/internal/adapter/kafka"
	"github.com/couchcryptid/dwh-retrieval/internal/adapter/sqlite"
	"github.com/couchcryptid/dwh-retrieval/internal/config"
	"github.com/couchcryptid/dwh-retrieval/internal/observability"
	"github.com/couchcryptid/dwh-retrieval/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if err := cfg.ValidateJob(); err != nil {
		slog.Error("invalid job definition", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client, err := dwh.NewClient(cfg.RetrieveTimeout, cfg.RetrieveEncoding, logger)
	if err != nil {
		logger.Error("failed to create retrieval client", "error", err)
		return 1
	}
	retriever := pipeline.NewRetriever(client, cfg.RetrieveCommand, logger, metrics)

	var sinks []pipeline.Sink
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}
	if cfg.ArchivePath != "" {
		archive, err := sqlite.Open(cfg.ArchivePath, logger)
		if err != nil {
			logger.Error("failed to open archive", "error", err, "path", cfg.ArchivePath)
			return 1
		}
		defer func() {
			if err := archive.Close(); err != nil {
				logger.Error("archive close error", "error", err)
			}
		}()
		sinks = append(sinks, archive)
		logger.Info("sqlite archive enabled", "path", cfg.ArchivePath)
	}
	if len(sinks) == 0 {
		logger.Warn("no sink configured, retrieved tables are discarded")
	}

	p := pipeline.New(pipeline.Plan{
		Kind:           cfg.JobKind,
		Stations:       cfg.JobStations,
		Start:          cfg.JobStart,
		End:            cfg.JobEnd,
		Step:           cfg.JobStep,
		Params:         cfg.JobParams,
		AbortOnFailure: cfg.JobOnError == config.OnErrorAbort,
		MaxAttempts:    cfg.JobMaxAttempts,
	}, retriever, sinks, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the batch job.
	jobErr := make(chan error, 1)
	go func() {
		_, err := p.Run(ctx)
		jobErr <- err
	}()

	exitCode := 0
	select {
	case err := <-jobErr:
		if err != nil {
			logger.Error("job failed", "error", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		<-jobErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return exitCode
}
