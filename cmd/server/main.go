package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/samply/directory-sync-service-sub000/internal/correction"
	"github.com/samply/directory-sync-service-sub000/internal/correction/cache"
	"github.com/samply/directory-sync-service-sub000/internal/directory"
	"github.com/samply/directory-sync-service-sub000/internal/factsink"
	"github.com/samply/directory-sync-service-sub000/internal/fhirstore"
	"github.com/samply/directory-sync-service-sub000/internal/orchestrator"
	"github.com/samply/directory-sync-service-sub000/internal/platform/config"
	"github.com/samply/directory-sync-service-sub000/internal/platform/httpserver"
	"github.com/samply/directory-sync-service-sub000/internal/platform/logger"
	"github.com/samply/directory-sync-service-sub000/internal/platform/metrics"
	httptransport "github.com/samply/directory-sync-service-sub000/internal/transport/http"
)

// main wires high-level dependencies, exposes the operational HTTP surface,
// and keeps the run lifecycle small. Sync logic lives in internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	registry := newRegistryClient(cfg)
	store := fhirstore.New(cfg.FHIRStoreURL, fhirstore.WithLogger(log))
	corrector := correction.New(newValidator(cfg, log), correction.WithLogger(log))

	opts := []orchestrator.Option{
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(m),
	}

	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.PostgresURL)
		if err != nil {
			log.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		sink := factsink.New(pool)
		if err := sink.CreateSchema(context.Background()); err != nil {
			log.Error("create facts schema", "error", err)
			os.Exit(1)
		}
		opts = append(opts, orchestrator.WithFactSink(sink))
	}

	o := orchestrator.New(orchestrator.Config{
		CountryCode:         cfg.CountryCode,
		DefaultCollectionID: cfg.DefaultCollection,
		MinDonors:           cfg.MinDonors,
		MaxFacts:            cfg.MaxFacts,
		UpdateStarModel:     cfg.UpdateStarModel,
		Attempts:            cfg.RetryAttempts,
		RetryInterval:       cfg.RetryInterval,
	}, registry, store, corrector, opts...)

	handler := httptransport.NewHandler(o, log)
	router := httptransport.NewRouter(handler)
	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting directory-sync", "addr", cfg.Addr, "directory", cfg.DirectoryKind)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runSyncLoop(ctx, o, cfg.SyncInterval, log)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}

// runSyncLoop runs one sync at startup and then on every tick until the
// context is cancelled. Failures are logged and retried at the next tick.
func runSyncLoop(ctx context.Context, o *orchestrator.Orchestrator, interval time.Duration, log *slog.Logger) {
	run := func() {
		result, err := o.Run(ctx)
		if err != nil {
			log.Error("sync run failed", "state", string(result.State), "error", err)
			return
		}
		log.Info("sync run finished", "facts_published", result.FactsPublished)
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

func newRegistryClient(cfg config.Config) directory.Client {
	if cfg.DirectoryMock {
		return directory.NewFile(cfg.DirectoryOutDir)
	}
	switch cfg.DirectoryKind {
	case config.DirectoryGraphQL:
		return directory.NewGraphQL(cfg.DirectoryURL, cfg.DirectoryUser, cfg.DirectoryPass, cfg.DirectorySchema)
	case config.DirectoryFile:
		return directory.NewFile(cfg.DirectoryOutDir)
	default:
		return directory.NewREST(cfg.DirectoryURL, cfg.DirectoryUser, cfg.DirectoryPass)
	}
}

// newValidator builds the diagnosis validator chain: the registry's
// disease-type endpoint, optionally fronted by a Redis or in-memory cache.
func newValidator(cfg config.Config, log *slog.Logger) correction.Validator {
	base := directory.NewCodeValidator(cfg.DirectoryURL, log)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return correction.NewCachedValidator(base, cache.NewRedis(client, cfg.CacheTTL, log))
	}
	if cfg.MemoryCache {
		return correction.NewCachedValidator(base, cache.NewInMemory(cfg.CacheTTL))
	}
	return base
}
