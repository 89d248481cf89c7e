package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"trivia-service/internal/app"
	"trivia-service/internal/catalog"
	"trivia-service/internal/config"
	"trivia-service/internal/domain"
	"trivia-service/internal/engine"
	"trivia-service/internal/infra/kv"
	"trivia-service/internal/infra/memory"
	"trivia-service/internal/infra/postgres"
	redisinfra "trivia-service/internal/infra/redis"
	"trivia-service/internal/infra/sqlite"
	"trivia-service/internal/metrics"
)

// loadConfig reads path, falling back to defaults when the file does not exist.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// components is everything runServer needs, plus how to release it.
type components struct {
	service *app.GameService
	closers []func()
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// buildService wires storage, catalog and sessions for cfg.Storage.Backend.
func buildService(ctx context.Context, cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*components, error) {
	c := &components{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.closers = append(c.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.closers = append(c.closers, pool.Close)
	}

	subjects, err := loadCatalog(cfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	var loader memory.SubjectLoader = memory.NewStaticSubjectLoader(subjects)
	if pool != nil {
		loader = postgres.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalogRepo app.CatalogRepository
	if redisClient != nil {
		catalogRepo = redisinfra.NewCatalogRepository(redisClient, loader, catalogTTL)
	} else {
		catalogRepo = memory.NewCatalogRepository(loader, catalogTTL)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	var (
		profiles app.ProfileStore
		results  app.ResultLog
	)
	switch cfg.Storage.Backend {
	case "memory":
		gw := memory.NewKVStore()
		profiles, results = kv.NewProfileStore(gw), kv.NewResultLog(gw)
	case "sqlite":
		gw, err := sqlite.NewKVStore(cfg.SQLite.Path)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		c.closers = append(c.closers, func() { _ = gw.Close() })
		profiles, results = kv.NewProfileStore(gw), kv.NewResultLog(gw)
	case "redis":
		if redisClient == nil {
			c.Close()
			return nil, fmt.Errorf("storage backend redis needs redis.addr")
		}
		profiles, results = kv.NewProfileStore(redisinfra.NewKVStore(redisClient)), redisinfra.NewResultLog(redisClient)
	case "postgres":
		if pool == nil {
			c.Close()
			return nil, fmt.Errorf("storage backend postgres needs postgres.url")
		}
		profiles, results = postgres.NewProfileStore(pool), postgres.NewResultLog(pool)
	default:
		c.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	c.service = app.NewGameService(sessions, catalogRepo, profiles, results, serviceOptions(cfg, logger, m))
	logger.Info("game service ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("redis", redisClient != nil),
		zap.Bool("postgres", pool != nil))
	return c, nil
}

func serviceOptions(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) app.Options {
	g := cfg.Game
	var source engine.Source
	if g.Seed != 0 {
		source = engine.NewSource(g.Seed)
	}
	return app.Options{
		Rules:            g.Rules(),
		Defaults:         g.ProfileDefaults(),
		HistoryLimit:     g.HistoryLimit,
		LeaderboardLimit: g.LeaderboardLimit,
		Prices:           g.Prices,
		Avatars:          g.Avatars,
		Source:           source,
		Logger:           logger,
		Metrics:          m,
	}
}

func loadCatalog(cfg config.Config) ([]domain.Subject, error) {
	if cfg.Catalog.Path == "" {
		return catalog.Default()
	}
	return catalog.LoadFile(cfg.Catalog.Path)
}
