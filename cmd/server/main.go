package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lethieuanh89/taphoa39-sub000/internal/cache"
	"github.com/lethieuanh89/taphoa39-sub000/internal/config"
	"github.com/lethieuanh89/taphoa39-sub000/internal/infra"
	"github.com/lethieuanh89/taphoa39-sub000/internal/repository"
	"github.com/lethieuanh89/taphoa39-sub000/internal/router"
	"github.com/lethieuanh89/taphoa39-sub000/internal/service"
	"github.com/lethieuanh89/taphoa39-sub000/internal/worker"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Repositories
	products := repository.NewProductStore(db)
	invoices := repository.NewInvoiceRepository(db)
	offline := repository.NewOfflineInvoiceQueue(db)
	movements := repository.NewMovementRepository(db)

	// Caches and remote clients
	snapshot := cache.NewGroupSnapshotCache(cfg.SnapshotTTL())
	oos := cache.NewRedisOutOfStockIndex(rdb)
	remote := infra.NewHTTPRemoteClient(cfg.RemoteBaseURL)
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	var retail infra.RetailClient
	if cfg.RetailURL != "" {
		retail = infra.NewXMLRPCRetailClient(cfg.RetailURL, cfg.RetailDatabase, cfg.RetailUser, cfg.RetailPassword)
	}

	notifier := worker.NewRetryNotifier(cfg.NotifierCapacity, func(ctx context.Context, n worker.Notification) error {
		if retail == nil {
			return nil
		}
		if err := retail.PushOnHand(ctx, n.ProductID, n.OnHand); err != nil {
			return err
		}
		if n.BasePrice != nil {
			return retail.PushPrice(ctx, n.ProductID, *n.BasePrice)
		}
		return nil
	})

	// Services
	applier := service.NewApplier(products, movements, snapshot, oos)
	reconciler := service.NewReconciler(remote, retail, products, movements, snapshot, oos, cb, notifier)
	catalog := service.NewCatalogService(products, snapshot)
	dispatcher := worker.NewDispatcher(rdb)
	checkout := service.NewCheckoutService(products, invoices, offline, catalog, applier, reconciler, dispatcher)
	syncSvc := service.NewSyncService(offline, invoices, products, catalog, reconciler)

	// Background workers
	receipts := worker.NewReceiptRenderer(invoices, cfg.PDFStoragePath)
	worker.StartWorkerPool(ctx, rdb, receipts, cfg.WorkerPoolSize)
	worker.StartSyncCron(ctx, worker.SyncCronConfig{
		Syncer:   syncSvc,
		CB:       cb,
		Notifier: notifier,
		Interval: cfg.SyncInterval(),
	})

	engine := router.New(cfg, router.Deps{
		DB:         db,
		RDB:        rdb,
		Products:   products,
		Offline:    offline,
		Catalog:    catalog,
		Checkout:   checkout,
		Sync:       syncSvc,
		Reconciler: reconciler,
		OOS:        oos,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")

	cancel() // stop workers and the sync cron

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	if err := rdb.Close(); err != nil {
		log.Warn().Err(err).Msg("redis close failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}
