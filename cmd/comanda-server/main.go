package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	authapp "github.com/mvcruz/comanda/internal/auth/application"
	authhttp "github.com/mvcruz/comanda/internal/auth/infrastructure/http"
	authdb "github.com/mvcruz/comanda/internal/auth/infrastructure/postgres"
	catalogapp "github.com/mvcruz/comanda/internal/catalog/application"
	cataloghttp "github.com/mvcruz/comanda/internal/catalog/infrastructure/http"
	catalogdb "github.com/mvcruz/comanda/internal/catalog/infrastructure/postgres"
	"github.com/mvcruz/comanda/internal/config"
	orderapp "github.com/mvcruz/comanda/internal/order/application"
	orderhttp "github.com/mvcruz/comanda/internal/order/infrastructure/http"
	orderdb "github.com/mvcruz/comanda/internal/order/infrastructure/postgres"
	"github.com/mvcruz/comanda/internal/pgdb"
	statsapp "github.com/mvcruz/comanda/internal/stats/application"
	statshttp "github.com/mvcruz/comanda/internal/stats/infrastructure/http"
	statsdb "github.com/mvcruz/comanda/internal/stats/infrastructure/postgres"
	stockapp "github.com/mvcruz/comanda/internal/stock/application"
	stockdb "github.com/mvcruz/comanda/internal/stock/infrastructure/postgres"
	"github.com/mvcruz/comanda/pkg/idempotency"
	pkgkafka "github.com/mvcruz/comanda/pkg/kafka"
	"github.com/mvcruz/comanda/pkg/logging"
	"github.com/mvcruz/comanda/pkg/metrics"
	"github.com/mvcruz/comanda/pkg/outbox"
	"github.com/mvcruz/comanda/pkg/shutdown"
	"github.com/mvcruz/comanda/pkg/tracing"
)

func main() {
	log := logging.New()
	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if cfg.Tracing.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, "comanda-server", cfg.Tracing.OTLPEndpoint, log)
		if err != nil {
			log.Error("otel init failed", "err", err)
			os.Exit(1)
		}
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	pool, err := pgdb.NewPool(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pgdb.Migrate(ctx, pool); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	defer func() { _ = rdb.Close() }()
	idem := idempotency.NewStore(rdb, cfg.Redis.IdempotencyTTL)

	// Repositories and services.
	txm := pgdb.NewTxManager(pool)
	stockRepo := stockdb.NewRepository(log, pool)
	stockSvc := stockapp.NewService(log, stockRepo)
	catalogRepo := catalogdb.NewRepository(log, pool)
	catalogSvc := catalogapp.NewService(log, catalogRepo)
	orderRepo := orderdb.NewRepository(log, pool)
	orderSvc := orderapp.NewService(log, txm, orderRepo, stockSvc, catalogSvc)
	statsRepo := statsdb.NewRepository(log, pool)
	statsSvc := statsapp.NewService(log, statsRepo, stockSvc)
	authRepo := authdb.NewRepository(log, pool)
	authSvc := authapp.NewService(log, authRepo, []byte(cfg.JWT.Secret), cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	// Outbox relay: pending order events drain to Kafka in commit order.
	writer := pkgkafka.NewWriter(cfg.Kafka.Brokers)
	defer func() { _ = writer.Close() }()
	dispatch := outbox.NewDispatcher(log, writer, cfg.Kafka.OutboxTopic)
	relay := outbox.NewRelay(log, orderdb.NewOutboxStore(log, pool), dispatch, "comanda-server-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped", "err", err)
		}
	}()

	srvMetrics := metrics.NewServerMetrics("server")

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(srvMetrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/auth", authhttp.NewHandler(log, authSvc).Routes())
	r.Group(func(r chi.Router) {
		r.Use(authhttp.Authenticator(authSvc))
		r.Mount("/products", cataloghttp.NewHandler(log, catalogSvc, stockSvc).Routes())
		r.Mount("/orders", orderhttp.NewHandler(log, orderSvc, idempotency.Middleware(idem)).Routes())
		r.Mount("/statistics", statshttp.NewHandler(log, statsSvc).Routes())
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	log.Info("comanda-server shutdown")
}
