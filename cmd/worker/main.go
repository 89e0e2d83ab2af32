// Command worker consumes docket jobs from Kafka: recorded events are run
// through the task rules and queued renewal batches are transitioned.  It
// serves /healthz, /readyz and /metrics on the ops port.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/KeyIP-Docket/internal/bootstrap"
	"github.com/turtacn/KeyIP-Docket/internal/config"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyIP-Docket/internal/infrastructure/monitoring/logging"
	ops "github.com/turtacn/KeyIP-Docket/internal/interfaces/http"
	"github.com/turtacn/KeyIP-Docket/internal/interfaces/http/handlers"
	"github.com/turtacn/KeyIP-Docket/internal/interfaces/http/middleware"
	"github.com/turtacn/KeyIP-Docket/internal/interfaces/worker"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment only)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		OutputPaths: cfg.Log.OutputPaths,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting KeyIP-Docket worker",
		logging.String("version", version),
		logging.String("commit", commit),
		logging.String("build_date", buildDate))

	infra, err := bootstrap.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer infra.Close()

	svc := bootstrap.NewServices(infra, cfg.Docket, logger)

	if configPath != "" {
		err := config.Watch(configPath,
			func(c *config.Config) {
				svc.Reload(c.Docket)
				logger.Info("docket settings reloaded", logging.String("config", configPath))
			},
			func(err error) {
				logger.Warn("config reload rejected", logging.Err(err))
			})
		if err != nil {
			return err
		}
	}

	handlerSet := []worker.Handler{
		worker.NewEventRecordedHandler(svc.Events, logger),
		worker.NewRenewalBatchHandler(svc.Renewals, logger),
	}

	consumerCfg := kafka.ConsumerConfigFrom(cfg.Kafka, cfg.Worker)
	if len(consumerCfg.Topics) == 0 {
		consumerCfg.Topics = worker.Topics(handlerSet...)
	}
	consumer, err := kafka.NewConsumer(consumerCfg, infra.Producer, infra.Metrics, logger)
	if err != nil {
		return fmt.Errorf("failed to create Kafka consumer: %w", err)
	}
	worker.Register(consumer, handlerSet...)

	health := handlers.NewHealthHandler(version,
		handlers.CheckFunc("postgres", infra.Postgres.HealthCheck),
		handlers.CheckFunc("redis", infra.Redis.HealthCheck),
	)
	routerCfg := ops.RouterConfig{
		Health:  health,
		Logger:  logger,
		Logging: middleware.DefaultLoggingConfig(),
	}
	if cfg.Metrics.Enabled {
		routerCfg.Metrics = infra.Collector.Handler()
	}
	server := ops.NewServer(cfg.Server, ops.NewRouter(routerCfg), logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Kafka.EnsureTopics {
		ensureTopics(ctx, cfg.Kafka.Brokers, logger)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return consumer.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })

	logger.Info("worker started", logging.Any("topics", consumerCfg.Topics))
	if err := g.Wait(); err != nil {
		logger.Error("worker stopped with error", logging.Err(err))
		return err
	}
	logger.Info("KeyIP-Docket worker stopped")
	return nil
}

// ensureTopics creates missing docket topics.  Failures are logged and the
// worker starts anyway; the consumer reports missing topics itself.
func ensureTopics(ctx context.Context, brokers []string, logger logging.Logger) {
	tm, err := kafka.NewTopicManager(brokers, logger)
	if err != nil {
		logger.Warn("topic provisioning skipped", logging.Err(err))
		return
	}
	defer tm.Close()
	if err := tm.EnsureDefaultTopics(ctx); err != nil {
		logger.Warn("topic provisioning failed", logging.Err(err))
	}
}

//Personal.AI order the ending
