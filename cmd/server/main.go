// Command server wires the facepay services and runs the HTTP API. Business
// logic lives in the internal service packages; main only assembles them.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"facepay/internal/auth"
	"facepay/internal/events"
	eventskafka "facepay/internal/events/kafka"
	"facepay/internal/facepay"
	ledgermetrics "facepay/internal/ledger/metrics"
	ledgermodels "facepay/internal/ledger/models"
	ledgerservice "facepay/internal/ledger/service"
	ledgerstore "facepay/internal/ledger/store"
	"facepay/internal/platform/config"
	"facepay/internal/platform/httpserver"
	"facepay/internal/platform/logger"
	"facepay/internal/platform/postgres"
	platformredis "facepay/internal/platform/redis"
	"facepay/internal/registry/cache"
	regmetrics "facepay/internal/registry/metrics"
	registryservice "facepay/internal/registry/service"
	registrystore "facepay/internal/registry/store"
	httptransport "facepay/internal/transport/http"
	"facepay/pkg/domain"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The capability is minted once per process and handed only to the
	// services and the admin handler. Nothing else can construct one.
	adminCap := domain.MintAdminCap()

	health := map[string]httptransport.HealthChecker{}

	var (
		profiles registrystore.Store
		ledger   ledgerstore.Store
		ledgerTx ledgerstore.Tx
	)
	if cfg.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		regStore := registrystore.NewPostgresStore(db)
		ledStore := ledgerstore.NewPostgresStore(db)
		if err := regStore.EnsureSchema(ctx); err != nil {
			log.Error("registry schema migration failed", "error", err)
			os.Exit(1)
		}
		if err := ledStore.EnsureSchema(ctx, ledgermodels.NewSystem(time.Now().UTC())); err != nil {
			log.Error("ledger schema migration failed", "error", err)
			os.Exit(1)
		}
		profiles, ledger, ledgerTx = regStore, ledStore, ledgerstore.NewSQLTx(db)
		health["postgres"] = db.PingContext
	} else {
		log.Warn("no postgres dsn configured, using in-memory stores")
		profiles = registrystore.NewMemoryStore()
		ledger = ledgerstore.NewMemoryStore(ledgermodels.NewSystem(time.Now().UTC()))
		ledgerTx = ledgerstore.NewMemoryTx()
	}

	registryMetrics := regmetrics.New()

	var lookupCache *cache.LookupCache
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		lookupCache = cache.New(redisClient.Client, cfg.CacheTTL, registryMetrics)
		health["redis"] = redisClient.Health
	}

	g, ctx := errgroup.WithContext(ctx)

	// Notifications flow through a buffered worker so sink latency never
	// sits on the payment path.
	var sink events.Publisher = events.NewMemorySink()
	if len(cfg.KafkaBrokers) > 0 {
		kafkaOpts := []eventskafka.Option{eventskafka.WithLogger(log)}
		if cfg.KafkaTopic != "" {
			kafkaOpts = append(kafkaOpts, eventskafka.WithTopic(cfg.KafkaTopic))
		}
		kafkaSink, err := eventskafka.New(ctx, cfg.KafkaBrokers, kafkaOpts...)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn("no kafka brokers configured, notifications stay in-process")
	}
	worker := events.NewWorker(sink, cfg.EventBuffer, log)
	g.Go(func() error {
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	registrySvc := registryservice.New(profiles, adminCap,
		registryservice.WithPublisher(worker),
		registryservice.WithCache(lookupCache),
		registryservice.WithMetrics(registryMetrics),
		registryservice.WithLogger(log),
	)
	ledgerSvc := ledgerservice.New(ledger, ledgerTx, registrySvc, adminCap,
		ledgerservice.WithPublisher(worker),
		ledgerservice.WithMetrics(ledgermetrics.New()),
		ledgerservice.WithLogger(log),
	)
	facepaySvc := facepay.New(registrySvc, ledgerSvc,
		facepay.WithPublisher(worker),
		facepay.WithLogger(log),
	)

	tokens := auth.NewTokenService(cfg.JWTSigningKey, "facepay")

	router := httptransport.NewRouter(httptransport.Deps{
		Registry:    registrySvc,
		Payments:    facepaySvc,
		Receipts:    ledgerSvc,
		Admin:       ledgerSvc,
		Validator:   tokens,
		Logger:      log,
		AdminCap:    adminCap,
		AdminAPIKey: cfg.AdminAPIKey,
		Health:      health,
	})

	srv := httpserver.New(cfg.Addr, router)

	g.Go(func() error {
		log.Info("starting facepay server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		return httpserver.Shutdown(srv, 10*time.Second)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
