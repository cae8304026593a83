package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roads-authority/roadworks-api/internal/dto"
	"github.com/roads-authority/roadworks-api/internal/models"
	"github.com/roads-authority/roadworks-api/internal/repository"
	"github.com/roads-authority/roadworks-api/internal/service"
	"github.com/roads-authority/roadworks-api/pkg/config"
	"github.com/roads-authority/roadworks-api/pkg/database"
	"github.com/roads-authority/roadworks-api/pkg/logger"
)

type fixtureFile struct {
	Roadworks []dto.CreateRoadworkRequest `yaml:"roadworks"`
}

func main() {
	var (
		fixturesPath string
		dryRun       bool
	)
	flag.StringVar(&fixturesPath, "fixtures", filepath.Join("fixtures", "roadworks.yaml"), "Path to YAML roadwork fixtures")
	flag.BoolVar(&dryRun, "dry-run", false, "Parse fixtures without writing them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	fixtures, err := loadFixtures(fixturesPath)
	if err != nil {
		logr.Fatal("failed to load fixtures", zap.String("path", fixturesPath), zap.Error(err))
	}
	if dryRun {
		logr.Info("fixtures parsed", zap.Int("count", len(fixtures)))
		return
	}

	ctx := context.Background()
	repo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logr.Fatal("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer closeStore()

	processor := service.NewClosureRouteProcessor(cfg.Roadworks.OverlapToleranceKm, nil, logr)
	roadworks := service.NewRoadworkService(repo, processor, nil, nil, nil, logr, service.RoadworkServiceConfig{CachePrefix: cfg.Roadworks.CachePrefix})

	created, failed := seed(ctx, roadworks, fixtures, logr)
	logr.Info("seed finished", zap.Int("created", created), zap.Int("failed", failed))
	if failed > 0 {
		os.Exit(1)
	}
}

type roadworkCreator interface {
	Create(ctx context.Context, req dto.CreateRoadworkRequest, actor dto.Actor) (*models.Roadwork, error)
}

func seed(ctx context.Context, svc roadworkCreator, fixtures []dto.CreateRoadworkRequest, logr *zap.Logger) (created, failed int) {
	actor := dto.Actor{UserID: "seed", Email: "seed@roadworks.local"}
	for i, req := range fixtures {
		rw, err := svc.Create(ctx, req, actor)
		if err != nil {
			failed++
			logr.Error("fixture rejected", zap.Int("index", i), zap.Error(err))
			continue
		}
		created++
		logr.Info("fixture created", zap.String("roadwork_id", rw.ID), zap.String("title", rw.Title))
	}
	return created, failed
}

func loadFixtures(path string) ([]dto.CreateRoadworkRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	var file fixtureFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	if len(file.Roadworks) == 0 {
		return nil, fmt.Errorf("no roadworks in %s", path)
	}
	return file.Roadworks, nil
}

func openStore(ctx context.Context, cfg *config.Config) (service.RoadworkRepository, func(), error) {
	if cfg.StoreBackend == config.StoreMongo {
		client, db, err := database.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewRoadworkMongoRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewRoadworkRepository(db), func() { _ = db.Close() }, nil
}
