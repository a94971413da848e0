package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/sandbank/infra"
	infracache "github.com/amirasaad/sandbank/infra/cache"
	infraevents "github.com/amirasaad/sandbank/infra/eventbus"
	infrarepo "github.com/amirasaad/sandbank/infra/repository"
	"github.com/amirasaad/sandbank/pkg/app"
	"github.com/amirasaad/sandbank/pkg/cache"
	"github.com/amirasaad/sandbank/pkg/config"
	"github.com/amirasaad/sandbank/pkg/eventbus"
	"github.com/redis/go-redis/v9"
)

// InitializeDependencies sets up logging, opens and migrates the database
// and selects the cache and the event sink. The returned cleanup closes
// what was opened.
func InitializeDependencies(ctx context.Context, cfg *config.App) (
	deps *app.Deps,
	cleanup func() error,
	err error,
) {
	logger := setupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, nil, err
	}
	if err := infra.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	closers := []func() error{func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}}

	var store cache.Store
	if cfg.Redis != nil && cfg.Redis.URL != "" {
		redisCache, err := infracache.NewRedisCache(ctx, cfg.Redis, logger)
		if err != nil {
			_ = closers[0]()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		closers = append(closers, redisCache.Close)
		store = redisCache
	} else {
		logger.Info("Redis not configured, using in-memory cache")
		store = infracache.NewMemoryCache()
	}

	sink, closeSink, err := newEventSink(ctx, cfg, logger)
	if err != nil {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		return nil, nil, err
	}
	if closeSink != nil {
		closers = append(closers, closeSink)
	}

	deps = &app.Deps{
		Uow:    infrarepo.NewUoW(db),
		Cache:  store,
		Backup: infra.NewBackup(db, logger),
		Events: sink,
		Logger: logger,
	}
	if consumer, ok := sink.(eventbus.Consumer); ok {
		deps.Consumer = consumer
	}
	cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	return deps, cleanup, nil
}

// newEventSink returns nil for the memory driver.
func newEventSink(ctx context.Context, cfg *config.App, logger *slog.Logger) (eventbus.Publisher, func() error, error) {
	if cfg.Events == nil {
		return nil, nil, nil
	}
	switch cfg.Events.Driver {
	case "", "memory":
		return nil, nil, nil
	case "redis":
		if cfg.Redis == nil || cfg.Redis.URL == "" {
			return nil, nil, fmt.Errorf("events driver redis requires REDIS_URL")
		}
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("events: invalid redis url: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("events: failed to connect to redis: %w", err)
		}
		bus := infraevents.NewRedisStreamBus(client, cfg.Events.Stream, cfg.Events.Group, cfg.Events.StreamMaxLen, logger)
		logger.Info("Publishing ledger events to Redis stream", "stream", cfg.Events.Stream)
		return bus, bus.Close, nil
	case "kafka":
		if len(cfg.Events.KafkaBrokers) == 0 {
			return nil, nil, fmt.Errorf("events driver kafka requires EVENTS_KAFKA_BROKERS")
		}
		p := infraevents.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, logger)
		logger.Info("Publishing ledger events to Kafka", "topic", cfg.Events.KafkaTopic)
		return p, p.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown events driver %q", cfg.Events.Driver)
	}
}
