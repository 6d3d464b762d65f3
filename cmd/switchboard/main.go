package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"

	"github.com/apembroke/switchboard/pkg/api"
	"github.com/apembroke/switchboard/pkg/auth"
	"github.com/apembroke/switchboard/pkg/config"
	"github.com/apembroke/switchboard/pkg/engine"
	"github.com/apembroke/switchboard/pkg/middleware"
	"github.com/apembroke/switchboard/pkg/observability"
	"github.com/apembroke/switchboard/pkg/storage"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "switchboard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)
	log.WithField("version", version).Info("starting switchboard")

	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	backend, err := openBackend(cfg, log)
	if err != nil {
		return fmt.Errorf("opening storage backend: %w", err)
	}

	registry := storage.NewRegistry(backend)
	registry.OnSizeChange(func(n int) {
		metrics.CollectionsActive.Set(float64(n))
	})

	if cfg.SeedFile != "" {
		seed, err := storage.LoadSeed(cfg.SeedFile)
		if err != nil {
			return fmt.Errorf("loading seed file: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		applied, err := storage.ApplySeed(ctx, backend, seed)
		cancel()
		if err != nil {
			return fmt.Errorf("applying seed file: %w", err)
		}
		log.WithField("projects", applied).Info("seed catalog applied")
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	gate := middleware.NewGate(tokens)

	resolver, err := engine.NewResolver(backend, cfg.RoutePrefix, cfg.ResolveCacheSize, metrics)
	if err != nil {
		return err
	}
	eng := engine.New(engine.Config{
		Resolver: resolver,
		Registry: registry,
		Gate:     gate,
		Tokens:   tokens,
		Logger:   log,
		Metrics:  metrics,
	})

	// Filesystem catalogs can change behind the process; watch and drop
	// the resolution memo on any change.
	if fs, ok := backend.(*storage.FileSystemBackend); ok {
		if err := fs.WatchCatalog(eng.Invalidate); err != nil {
			log.WithError(err).Warn("catalog watch unavailable")
		}
	}

	// Periodic reconcile bounds staleness for backends without change
	// notification (shared MongoDB in particular).
	scheduler := cron.New()
	reconcile := func() {
		defer observability.RecoverPanic(log, "reconcile")
		eng.Invalidate()
	}
	if _, err := scheduler.AddFunc(cfg.ReconcileSchedule, reconcile); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", cfg.ReconcileSchedule, err)
	}
	scheduler.Start()

	health := observability.NewHealthChecker(version)
	health.AddDependency("storage", backend)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled && cfg.RedisURL == "" {
		limiter = middleware.NewRateLimiter(&middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitPerMin,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.RateLimitBurst,
		})
		limiterCtx, limiterCancel := context.WithCancel(context.Background())
		defer limiterCancel()
		limiter.StartCleanup(limiterCtx)
	}

	server := api.NewServer(api.Config{
		Backend:      backend,
		Registry:     registry,
		Engine:       eng,
		Gate:         gate,
		Tokens:       tokens,
		Logger:       log,
		Metrics:      metrics,
		Health:       health,
		RateLimiter:  limiter,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	handler := server.Handler()
	var redisClient *redis.Client
	if cfg.RateLimitEnabled && cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opts)
		distributed := middleware.NewDistributedRateLimiter(redisClient, &middleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimitPerMin,
			WindowDuration:    time.Minute,
			BurstSize:         cfg.RateLimitBurst,
		}, "switchboard:ratelimit")
		handler = distributed.Handler(handler)
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := observability.NewShutdownManager(log, httpServer, cfg.ShutdownTimeout)
	shutdown.RegisterCloser("scheduler", func(ctx context.Context) error {
		scheduler.Stop()
		return nil
	})
	if redisClient != nil {
		shutdown.RegisterCloser("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	shutdown.RegisterCloser("storage", backend.Close)

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("http server failed")
		}
	}()

	return shutdown.WaitForShutdown()
}

func openBackend(cfg *config.Config, log *observability.Logger) (storage.Backend, error) {
	switch cfg.Storage.Type {
	case "memory":
		log.Info("using in-memory storage")
		return storage.NewMemoryBackend(), nil
	case "filesystem":
		log.WithField("root", cfg.Storage.FilesystemRoot).Info("using filesystem storage")
		return storage.NewFileSystemBackend(cfg.Storage.FilesystemRoot)
	case "mongo":
		log.WithField("database", cfg.Storage.MongoDatabase).Info("using mongodb storage")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.MongoTimeout)
		defer cancel()
		return storage.NewMongoBackend(ctx, cfg.Storage)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
