package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dukasoft/dukapos/internal/config"
	invapp "github.com/dukasoft/dukapos/internal/inventory/application"
	invhttp "github.com/dukasoft/dukapos/internal/inventory/infrastructure/http"
	invpg "github.com/dukasoft/dukapos/internal/inventory/infrastructure/postgres"
	payapp "github.com/dukasoft/dukapos/internal/payment/application"
	payhttp "github.com/dukasoft/dukapos/internal/payment/infrastructure/http"
	"github.com/dukasoft/dukapos/internal/payment/infrastructure/push"
	repapp "github.com/dukasoft/dukapos/internal/reporting/application"
	repkafka "github.com/dukasoft/dukapos/internal/reporting/infrastructure/kafka"
	reppg "github.com/dukasoft/dukapos/internal/reporting/infrastructure/postgres"
	saleapp "github.com/dukasoft/dukapos/internal/sale/application"
	salehttp "github.com/dukasoft/dukapos/internal/sale/infrastructure/http"
	salekafka "github.com/dukasoft/dukapos/internal/sale/infrastructure/kafka"
	salepg "github.com/dukasoft/dukapos/internal/sale/infrastructure/postgres"

	"github.com/dukasoft/dukapos/internal/auth"
	"github.com/dukasoft/dukapos/pkg/idempotency"
	"github.com/dukasoft/dukapos/pkg/logging"
	"github.com/dukasoft/dukapos/pkg/outbox"
	"github.com/dukasoft/dukapos/pkg/shutdown"
	"github.com/dukasoft/dukapos/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "pos-server", cfg.JaegerURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	if err := runMigrations(cfg.MigrationsPath, cfg.PostgresURL); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	idem := idempotency.NewStore(rdb, 24*time.Hour)

	writer := salekafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()

	gate := auth.NewTableGate()

	// Sale engine
	saleRepo := salepg.NewRepository(log, pool)
	outboxStore := salepg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.SaleTopic)
	relay := outbox.NewRelay(log, outboxStore, dispatch, "pos-server-relay")

	pushClient := push.NewClient(log, push.Config{
		BaseURL:   cfg.GatewayURL,
		Shortcode: cfg.Shortcode,
		Passkey:   cfg.Passkey,
		Timeout:   cfg.PayTimeout,
	})
	saleSvc := saleapp.NewService(log, saleRepo, pushClient, gate)
	saleSvc.SetInitiateTimeout(cfg.PayTimeout)
	saleHandler := salehttp.NewHandler(log, saleSvc)

	// Payment confirmation
	paySvc := payapp.NewService(log, saleRepo)
	callbackHandler := payhttp.NewCallbackHandler(log, paySvc, idem)
	sweeper := payapp.NewSweeper(log, saleRepo, cfg.PendingAfter)

	// Inventory
	invRepo := invpg.NewRepository(log, pool)
	invSvc := invapp.NewService(log, invRepo, gate)
	invHandler := invhttp.NewHandler(log, invSvc)

	// Reporting projection
	summarySvc := repapp.NewService(log, reppg.NewSummaryRepository(pool))
	consumer := repkafka.NewConsumer(log, cfg.KafkaBrokers, cfg.SaleTopic, cfg.ConsumerGroup, summarySvc, idem)

	r := chi.NewRouter()
	r.Mount("/", saleHandler.Routes())
	r.Mount("/inventory", invHandler.Routes())
	r.Mount("/gateway", callbackHandler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()
	go func() {
		if err := sweeper.Run(ctx); err != nil {
			log.Error("sweeper stopped with error", "err", err)
		}
	}()
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reporting consumer stopped with error", "err", err)
		}
	}()
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("pos-server shutdown complete")
}

func runMigrations(sourceURL, dbURL string) error {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
