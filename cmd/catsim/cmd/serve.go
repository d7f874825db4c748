package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/dispatch"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/pkg/redis"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve similarity queries over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port (overrides server.port)")

	return cmd
}

// services are the optional backends shared by serve and consume.
type services struct {
	cache     *cache.Cache
	redis     *pkgredis.Client
	tracker   dispatch.Tracker
	collector *analytics.Collector
	producer  *kafka.Producer
	agg       *analytics.Aggregator
}

// startServices connects Redis and the analytics pipeline when enabled.
// Unreachable optional backends are logged and skipped.
func startServices(ctx context.Context, cfg *config.Config, e *engine) (*services, error) {
	s := &services{agg: analytics.NewAggregator()}

	if cfg.Redis.Enabled {
		rc, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, using the in-process cache only", "error", err)
		} else {
			s.redis = rc
		}
	}
	c, err := cache.New(cfg.Redis.LocalCacheSize, s.redis, cfg.Redis.CacheTTL, cacheNamespace(e.corpus), e.metrics)
	if err != nil {
		return nil, fmt.Errorf("creating result cache: %w", err)
	}
	s.cache = c

	if !cfg.Kafka.Enabled {
		s.tracker = s.agg
		return s, nil
	}
	s.producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
	s.collector = analytics.NewCollector(s.producer, cfg.Analytics.BufferSize, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
	s.collector.Start(ctx)
	s.tracker = s.collector

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, analytics.HandleEvent(s.agg))
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("query event consumer error", "error", err)
		}
	}()
	slog.Info("analytics pipeline started", "topic", cfg.Kafka.Topics.QueryEvents)
	return s, nil
}

// Close flushes pending events; call it only after every dispatcher user
// has stopped.
func (s *services) Close() {
	if s.collector != nil {
		s.collector.Close()
	}
	if s.producer != nil {
		s.producer.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting similarity service", "port", cfg.Server.Port)

	e, err := openEngine(ctx, cfg, prometheus.DefaultRegisterer, true)
	if err != nil {
		return err
	}
	defer e.Close()
	stats := e.corpus.Stats()
	slog.Info("corpus loaded",
		"categories", stats.Categories,
		"terms", stats.Terms,
		"stems", stats.Stems,
		"documents", stats.Documents,
	)

	svc, err := startServices(ctx, cfg, e)
	if err != nil {
		return err
	}
	defer svc.Close()

	if cfg.Analytics.SnapshotInterval > 0 && e.pg != nil {
		store := analytics.NewStore(e.pg)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Warn("analytics snapshots disabled", "error", err)
		} else {
			store.StartPeriodicSave(ctx, svc.agg, cfg.Analytics.SnapshotInterval)
		}
	}

	if cfg.Metrics.Enabled {
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		go func() {
			if err := metrics.NewServer(cfg.Metrics.Port, prometheus.DefaultGatherer).Run(metricsCtx); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("corpus", func(context.Context) health.ComponentHealth {
		if stats.Categories == 0 || stats.Terms == 0 {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "an index is empty"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d categories, %d terms", stats.Categories, stats.Terms)}
	})
	if cfg.Redis.Enabled {
		var ping func(context.Context) error
		if svc.redis != nil {
			ping = svc.redis.Ping
		}
		checker.Register("redis", health.Ping(ping, true))
	}
	if e.pg != nil {
		checker.Register("postgres", health.Ping(e.pg.Ping, true))
	}
	if cfg.Kafka.Enabled {
		checker.Register("kafka", health.Ping(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka.Brokers)
		}, true))
	}

	d := dispatch.New(e.executor, svc.cache, svc.tracker, cfg.Search.MaxK)
	mux := http.NewServeMux()
	handler.New(d, cfg.Search.DefaultK).Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(svc.agg).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(e.metrics)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("similarity service listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("similarity service stopped")
	return nil
}
