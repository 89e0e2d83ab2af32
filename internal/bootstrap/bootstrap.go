// Package bootstrap connects the infrastructure clients and assembles the
// docket services for the worker and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	app "github.com/turtacn/KeyIP-Docket/internal/application/docket"
	"github.com/turtacn/KeyIP-Docket/internal/config"
	"github.com/turtacn/KeyIP-Docket/internal/domain/docket"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/postgres"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/KeyIP-Docket/internal/infrastructure/database/redis"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	metrics "github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/prometheus"
)

// Infrastructure holds the connected clients of one process.
type Infrastructure struct {
	Postgres  *postgres.Connection
	Redis     *redisinfra.Client
	Producer  *kafka.Producer
	Collector metrics.MetricsCollector
	Metrics   *metrics.DocketMetrics

	logger logging.Logger
}

// Open connects postgres and redis and prepares the kafka producer.  The
// producer dials lazily on first publish.
func Open(cfg *config.Config, logger logging.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{logger: logger}

	collector, err := NewCollector(cfg.Metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	infra.Collector = collector
	infra.Metrics = metrics.NewDocketMetrics(collector)

	pg, err := postgres.NewConnection(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	infra.Postgres = pg

	rc, err := redisinfra.NewClient(cfg.Redis, logger)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	infra.Redis = rc

	producer, err := kafka.NewProducer(cfg.Kafka, logger)
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	infra.Producer = producer

	logger.Info("infrastructure initialized",
		logging.String("database", cfg.Database.DBName),
		logging.String("redis", cfg.Redis.Addr))
	return infra, nil
}

// NewCollector returns a prometheus collector, or a no-op one when metrics
// are disabled.
func NewCollector(cfg config.MetricsConfig, logger logging.Logger) (metrics.MetricsCollector, error) {
	if !cfg.Enabled {
		return metrics.NewNoopCollector(), nil
	}
	return metrics.NewMetricsCollector(metrics.CollectorConfig{
		Namespace:            cfg.Namespace,
		Subsystem:            cfg.Subsystem,
		EnableGoMetrics:      cfg.EnableGoMetrics,
		EnableProcessMetrics: cfg.EnableProcessMetrics,
	}, logger)
}

// Close releases the clients in reverse order of opening.
func (i *Infrastructure) Close() {
	if i.Producer != nil {
		if err := i.Producer.Close(); err != nil {
			i.logger.Warn("kafka producer close failed", logging.Err(err))
		}
	}
	if i.Redis != nil {
		if err := i.Redis.Close(); err != nil {
			i.logger.Warn("redis close failed", logging.Err(err))
		}
	}
	if i.Postgres != nil {
		if err := i.Postgres.Close(); err != nil {
			i.logger.Warn("postgres close failed", logging.Err(err))
		}
	}
}

// Services are the docket services over one Infrastructure.
type Services struct {
	Settings *app.SettingsStore
	Repo     docket.Repository
	Cache    *redisinfra.CachedRepository
	Locks    *redisinfra.LockFactory
	Events   app.EventService
	Renewals app.RenewalService
	Matters  app.MatterService
}

// NewServices wires the repository stack (store, then reference cache) and
// the services.  Without redis the store is used directly and renewal
// batches are not locked.
func NewServices(infra *Infrastructure, d config.DocketConfig, logger logging.Logger) *Services {
	m := infra.Metrics
	if m == nil {
		m = metrics.NewNoopDocketMetrics()
	}

	s := &Services{Settings: app.NewSettingsStore(app.SettingsFrom(d))}
	var repo docket.Repository = repositories.NewStore(infra.Postgres, logger)

	deps := app.ServiceDeps{
		Settings: s.Settings,
		Metrics:  m,
		Logger:   logger,
	}
	if infra.Redis != nil {
		cache := redisinfra.NewRedisCache(infra.Redis, logger)
		s.Cache = redisinfra.NewCachedRepository(repo, cache, d.CacheTTL, m, logger)
		repo = s.Cache
		s.Locks = redisinfra.NewLockFactory(infra.Redis, logger, redisinfra.WithLockTTL(d.LockTTL)).Instrument(m)
		deps.Locker = s.Locks
	}
	if infra.Producer != nil {
		deps.Publisher = infra.Producer
	}
	deps.Repo = repo
	s.Repo = repo

	s.Events = app.NewEventService(deps)
	s.Renewals = app.NewRenewalService(deps)
	s.Matters = app.NewMatterService(deps)
	return s
}

// FlushCache drops the cached reference data.  It is a no-op without redis.
func (s *Services) FlushCache(ctx context.Context) (int64, error) {
	if s.Cache == nil {
		return 0, nil
	}
	return s.Cache.Invalidate(ctx)
}

// Reload applies a changed docket section.
func (s *Services) Reload(d config.DocketConfig) {
	s.Settings.Update(d)
}

//Personal.AI order the ending
