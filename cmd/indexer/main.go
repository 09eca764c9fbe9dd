package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"colindex/internal/index"
	"colindex/internal/index/analysis"
	"colindex/internal/index/codec"
	"colindex/internal/ingestion"
	"colindex/internal/store"
	"colindex/pkg/config"
	apperrors "colindex/pkg/errors"
	"colindex/pkg/health"
	"colindex/pkg/kafka"
	"colindex/pkg/logger"
	"colindex/pkg/metrics"
	"colindex/pkg/postgres"
	"colindex/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer service",
		"store_backend", cfg.Store.Backend,
		"consistency", cfg.Store.Consistency,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	st, cleanup, err := buildStore(ctx, cfg, checker)
	if err != nil {
		slog.Error("failed to build store", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}()
	}

	consistency := store.ParseConsistency(cfg.Store.Consistency)
	writer, err := index.NewWriter(st, analysis.NewStandard(0), codec.Default, index.Config{
		MaxDocsPerShard: cfg.Indexer.MaxDocsPerShard,
		Consistency:     consistency,
		AutoCommit:      cfg.Indexer.AutoCommit,
	}, m)
	if err != nil {
		slog.Error("failed to create index writer", "error", err)
		os.Exit(1)
	}

	completions := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer func() {
		if err := completions.Close(); err != nil {
			slog.Error("closing completion producer", "error", err)
		}
	}()

	handler := ingestion.NewHandler(writer, func(indexName string) *index.Allocator {
		return index.NewAllocator(st, consistency, indexName)
	}, ingestion.HandlerConfig{
		StoreOffsets: cfg.Indexer.StoreOffsets,
		Completions:  completions,
	})

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.DocumentIngest, handler.HandleMessage)
	checker.Register("kafka", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("lag=%d", consumer.Lag()),
		}
	})

	go serveHealth(checker)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.Start(gctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.Indexer.CommitInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				for _, name := range handler.Indexes() {
					result := writer.Commit(gctx, name, false)
					if result.Outcome == index.CommitDeferred {
						slog.Warn("periodic commit deferred",
							"index", name,
							"pending", writer.Pending(name),
						)
					}
				}
			}
		}
	})

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.DocumentIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		slog.Error("indexer service error", "error", err)
	}

	slog.Info("draining mutation queues before shutdown")
	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := writer.Close(drainCtx); err != nil {
		slog.Error("final drain failed", "error", err)
	}

	slog.Info("indexer service stopped")
}

// buildStore selects the configured store backend and registers its health
// check.
func buildStore(ctx context.Context, cfg *config.Config, checker *health.Checker) (store.Store, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case "memory":
		checker.Register("store", func(context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp}
		})
		return store.NewMemory(), noop, nil

	case "redis":
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to redis: %w", err)
		}
		checker.Register("store", func(ctx context.Context) health.ComponentHealth {
			if err := client.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		cleanup := func() {
			if err := client.Close(); err != nil {
				slog.Error("closing redis client", "error", err)
			}
		}
		return store.NewRedis(client, ""), cleanup, nil

	case "postgres":
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, noop, fmt.Errorf("connecting to postgres: %w", err)
		}
		pg := store.NewPostgres(client, "")
		if err := pg.EnsureSchema(ctx); err != nil {
			client.Close()
			return nil, noop, err
		}
		checker.Register("store", func(ctx context.Context) health.ComponentHealth {
			if err := client.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		cleanup := func() {
			if err := client.Close(); err != nil {
				slog.Error("closing postgres client", "error", err)
			}
		}
		return pg, cleanup, nil

	default:
		return nil, noop, fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, cfg.Store.Backend)
	}
}

func serveHealth(checker *health.Checker) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", checker.LiveHandler())
	mux.HandleFunc("/readyz", checker.ReadyHandler())
	server := &http.Server{
		Addr:         ":8086",
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("health server error", "error", err)
	}
}
