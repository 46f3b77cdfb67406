package main

import (
	"context"
	"fmt"
	"time"

	"github.com/septivank/device-activity-log/internal/activity"
	"github.com/septivank/device-activity-log/internal/config"
	"github.com/septivank/device-activity-log/internal/db"
	"github.com/septivank/device-activity-log/internal/mq"
	"github.com/septivank/device-activity-log/internal/mqtt"
	"github.com/septivank/device-activity-log/internal/service"
	"github.com/septivank/device-activity-log/internal/store"
	"github.com/septivank/device-activity-log/internal/validator"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const storeOpenTimeout = 10 * time.Second

func startWorker(
	lc fx.Lifecycle,
	conn *mq.Connection,
	cfg *config.Config,
	logger *zap.Logger,
	processor *service.ProcessorService,
) (*mq.Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	consumer, err := mq.NewConsumer(mq.ConsumerConfig{
		Connection:       conn,
		Queue:            cfg.RabbitMQ.IngestQueue,
		DLQQueue:         cfg.RabbitMQ.DLQQueue,
		Exchange:         cfg.RabbitMQ.IngestExchange,
		RoutingKey:       cfg.RabbitMQ.IngestRoutingKey,
		PrefetchCount:    cfg.RabbitMQ.PrefetchCount,
		Logger:           logger,
		MessageProcessor: processor.ProcessMessage,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			return consumer.Start(ctx)
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			if err := consumer.Close(); err != nil {
				logger.Error("failed to close consumer", zap.Error(err))
				return err
			}
			logger.Info("worker stopped gracefully")
			return nil
		},
	})

	return consumer, nil
}

// registerListeners subscribes the broker fan-out (and the optional MQTT mirror) to the activity log
func registerListeners(
	lc fx.Lifecycle,
	log *activity.Log,
	publisher *mq.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) error {
	log.OnActivityLogged(publisher.PublishActivity)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})

	if !cfg.MQTT.Enabled {
		return nil
	}

	bridge, err := mqtt.NewBridge(mqtt.Options{
		BrokerURL:   cfg.MQTT.BrokerURL,
		ClientID:    cfg.MQTT.ClientID,
		TopicPrefix: cfg.MQTT.TopicPrefix,
	}, logger)
	if err != nil {
		return err
	}
	log.OnActivityLogged(bridge.PublishActivity)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			bridge.Close()
			return nil
		},
	})

	return nil
}

// ProvideBlobStore opens the backend selected by STORE_BACKEND
func ProvideBlobStore(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (store.BlobStore, error) {
	logger.Info("opening activity store", zap.String("backend", cfg.Store.Backend))

	switch cfg.Store.Backend {
	case config.BackendMemory:
		return store.NewMemory(), nil

	case config.BackendPostgres:
		pool, err := db.NewPool(lc, logger, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgres(pool)
		// Appended after the pool's ping hook, so the table is created once the database is reachable.
		lc.Append(fx.Hook{OnStart: pg.Migrate})
		return pg, nil

	case config.BackendSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
		defer cancel()
		s, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return s.Close() }})
		return s, nil

	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
		defer cancel()
		r, err := store.NewRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.RedisAddr,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Prefix:   cfg.Store.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: func(context.Context) error { return r.Close() }})
		return r, nil
	}

	return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
}

// ProvideActivityLog creates the activity log and tears it down on shutdown
func ProvideActivityLog(lc fx.Lifecycle, s store.BlobStore, cfg *config.Config, logger *zap.Logger) *activity.Log {
	log := activity.New(s,
		activity.WithLogger(logger.Named("activity")),
		activity.WithMaxRecords(cfg.Activity.MaxRecords),
		activity.WithLocation(cfg.Activity.Location),
		activity.WithKeys(cfg.Activity.ActivityKey, cfg.Activity.StatsKey),
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return log.Close()
		},
	})
	return log
}

// ProvideValidator creates a new validator instance
func ProvideValidator(cfg *config.Config) *validator.Validator {
	return validator.NewValidator(cfg.Validation.MaxFieldLength)
}

// ProvidePublisher creates the activity event publisher
func ProvidePublisher(conn *mq.Connection, cfg *config.Config, logger *zap.Logger) (*mq.Publisher, error) {
	return mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, cfg.RabbitMQ.EventsRoutingKey, logger)
}

// ProvideProcessorService creates a new processor service instance
func ProvideProcessorService(log *activity.Log, v *validator.Validator, logger *zap.Logger) *service.ProcessorService {
	return service.NewProcessorService(log, v, logger)
}

// ProvideMQConnection creates a new RabbitMQ connection instance
func ProvideMQConnection(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*mq.Connection, error) {
	return mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
}
