package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roads-authority/roadworks-api/internal/handler"
	"github.com/roads-authority/roadworks-api/internal/repository"
	"github.com/roads-authority/roadworks-api/internal/service"
	"github.com/roads-authority/roadworks-api/pkg/cache"
	"github.com/roads-authority/roadworks-api/pkg/config"
	"github.com/roads-authority/roadworks-api/pkg/database"
	"github.com/roads-authority/roadworks-api/pkg/jobs"
	"github.com/roads-authority/roadworks-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// @title Roadworks API
// @version 1.0.0
// @description Roadworks, road closures and alternate routes for the Namibian road network
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	store, closeStore, err := openStore(ctx, cfg, checks)
	if err != nil {
		return err
	}
	defer closeStore()
	logr.Info("roadwork store ready", zap.String("backend", cfg.StoreBackend))

	var cacheRepo service.CacheRepository
	if cfg.EnableCache {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, public search cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			defer redisRepo.Close() //nolint:errcheck
			checks["cache"] = redisRepo.Ping
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Roadworks.PublicCacheTTL, logr, cacheRepo != nil)

	invalidations := jobs.NewQueue("cache-invalidation", cacheSvc.HandleInvalidation, jobs.QueueConfig{
		Workers:    cfg.Roadworks.InvalidationWorkers,
		BufferSize: cfg.Roadworks.InvalidationBuffer,
		MaxRetries: cfg.Roadworks.InvalidationRetries,
		Logger:     logr,
	})
	invalidations.Start(ctx)
	defer invalidations.Stop()
	cacheSvc.UseQueue(invalidations, cfg.Roadworks.InvalidationTimeout)

	processor := service.NewClosureRouteProcessor(cfg.Roadworks.OverlapToleranceKm, metrics, logr)
	roadworks := service.NewRoadworkService(store, processor, cacheSvc, metrics, nil, logr, service.RoadworkServiceConfig{
		CachePrefix:    cfg.Roadworks.CachePrefix,
		PublicCacheTTL: cfg.Roadworks.PublicCacheTTL,
		PublicLimit:    cfg.Roadworks.PublicLimit,
	})
	exports := service.NewRoadworkExportService(store, roadworks, metrics, logr)
	auth := service.NewAuthService(service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	router := newRouter(routerDeps{
		cfg:       cfg,
		logger:    logr,
		metrics:   metrics,
		auth:      auth,
		roadworks: handler.NewRoadworkHandler(roadworks, exports),
		ops:       handler.NewMetricsHandler(metrics, checks, logr),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, checks map[string]handler.ReadinessCheck) (service.RoadworkRepository, func(), error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewRoadworkMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		checks["store"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		checks["store"] = db.PingContext
		return repository.NewRoadworkRepository(db), func() { _ = db.Close() }, nil
	}
}
