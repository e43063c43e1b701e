package factory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"login-guard/internal/alerts"
	"login-guard/internal/client"
	"login-guard/internal/config"
	"login-guard/internal/consumer"
	"login-guard/internal/geo"
	"login-guard/internal/handler"
	"login-guard/internal/mailer"
	"login-guard/internal/models"
	chstore "login-guard/internal/repository/clickhouse"
	redisrepo "login-guard/internal/repository/redis"
	"login-guard/internal/repository/scylla"
	"login-guard/internal/service"
	"login-guard/internal/tls"
	"login-guard/internal/util"
)

// Factory manages the lifecycle of all application dependencies
type Factory struct {
	config     *config.Config
	logger     *zap.Logger
	tlsManager *tls.Manager

	// Clients
	clickhouseClient *client.ClickHouseClient
	redisClient      *client.RedisClient
	scyllaClient     *scylla.ScyllaClient
	kafkaProducer    *client.KafkaProducer
	kafkaConsumer    *client.KafkaConsumer
	esClient         *client.ESClient

	// Pipeline
	eventStore *chstore.EventStore
	listener   *service.Listener

	closeOnce sync.Once
	closed    chan struct{}
}

// NewFactory opens every backing service and assembles the pipeline. cfg
// must already carry decrypted secrets.
func NewFactory(cfg *config.Config, logger *zap.Logger) (*Factory, error) {
	f := &Factory{
		config: cfg,
		logger: logger,
		closed: make(chan struct{}),
	}

	if cfg.Server.EnableTLS {
		f.tlsManager = tls.NewManager(cfg.Server, logger)
	}

	if err := f.initializeClients(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := f.initializePipeline(); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	logger.Info("Factory initialized successfully",
		util.String("environment", cfg.Environment),
		util.Bool("tls_enabled", cfg.Server.EnableTLS),
		util.Bool("kafka_enabled", cfg.Kafka.Enabled),
		util.Bool("geo_cache", f.redisClient != nil),
		util.Bool("user_directory", f.scyllaClient != nil),
		util.Bool("alert_index", f.esClient != nil),
	)

	return f, nil
}

// initializeClients opens the event store, which is required, and the
// optional services. Optional failures only warn outside production.
func (f *Factory) initializeClients() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ch, err := client.NewClickHouseClient(f.config, f.logger)
	if err != nil {
		return fmt.Errorf("clickhouse: %w", err)
	}
	f.clickhouseClient = ch
	f.logger.Info("ClickHouse client initialized and healthy")

	var initErrors []error

	if f.config.Redis.URL != "" {
		if c, err := client.NewRedisClient(f.config, f.logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("redis: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			_ = c.Close()
			initErrors = append(initErrors, fmt.Errorf("redis health check: %w", err))
		} else {
			f.redisClient = c
			f.logger.Info("Redis client initialized and healthy")
		}
	}

	if len(f.config.Scylla.Nodes) > 0 {
		if c, err := scylla.NewScyllaClient(f.config, f.logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("scylla: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("scylla health check: %w", err))
		} else {
			f.scyllaClient = c
			f.logger.Info("ScyllaDB client initialized and healthy")
		}
	}

	if f.config.Elasticsearch.URL != "" {
		if c, err := client.NewElasticsearchClient(f.config, f.logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("elasticsearch: %w", err))
		} else if err := c.HealthCheck(ctx); err != nil {
			c.Close()
			initErrors = append(initErrors, fmt.Errorf("elasticsearch health check: %w", err))
		} else {
			f.esClient = c
			f.logger.Info("Elasticsearch client initialized and healthy")
		}
	}

	if f.config.Kafka.Enabled {
		if p, err := client.NewKafkaProducer(f.config, f.logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("kafka producer: %w", err))
		} else {
			f.kafkaProducer = p
		}
		if c, err := client.NewKafkaConsumer(f.config, f.logger); err != nil {
			initErrors = append(initErrors, fmt.Errorf("kafka consumer: %w", err))
		} else {
			f.kafkaConsumer = c
		}
	}

	if len(initErrors) > 0 {
		if f.config.IsProduction() {
			return fmt.Errorf("critical service initialization failed: %v", initErrors)
		}
		for _, err := range initErrors {
			f.logger.Warn("Service initialization warning", util.ErrorField(err))
		}
	}

	return nil
}

func (f *Factory) initializePipeline() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := chstore.NewEventStore(f.clickhouseClient, f.config.EventStore, f.logger)
	if err != nil {
		return err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	f.eventStore = store

	var resolver service.LocationResolver = geo.NewResolver(f.config.Geo, f.logger)
	if f.redisClient != nil {
		cache := redisrepo.NewLocationCache(f.redisClient, f.config.Geo.CacheTTL)
		resolver = geo.NewCachedResolver(resolver, cache, f.logger)
	}

	var directory service.UserDirectory
	if f.scyllaClient != nil {
		directory = scylla.NewUserDirectory(f.scyllaClient, f.logger)
	}

	var sinks []service.AlertSink
	if f.kafkaProducer != nil {
		sinks = append(sinks, alerts.NewKafkaSink(f.kafkaProducer))
	}
	if f.esClient != nil {
		sinks = append(sinks, alerts.NewElasticsearchSink(f.esClient, f.config.Elasticsearch.AlertIndex))
	}

	f.listener = service.NewListener(
		service.ListenerConfig{
			ExcludedEvents:     eventTypes(f.config.Exclusions.Events),
			ExcludedOperations: operationTypes(f.config.Exclusions.AdminOperations),
			EventTimeout:       f.config.Pipeline.EventTimeout,
		},
		service.NewEventRecorder(store, resolver, f.logger),
		service.NewAnomalyDetector(store, f.logger),
		service.NewAlertNotifier(mailer.NewSMTPTransport(f.config.SMTP, f.logger), directory, f.logger),
		directory,
		sinks,
		f.logger,
	)

	return nil
}

func eventTypes(names []string) []models.EventType {
	out := make([]models.EventType, 0, len(names))
	for _, n := range names {
		out = append(out, models.ParseEventType(n))
	}
	return out
}

// operationTypes expects names already checked by config.Validate.
func operationTypes(names []string) []models.OperationType {
	out := make([]models.OperationType, 0, len(names))
	for _, n := range names {
		if op, err := models.ParseOperationType(n); err == nil {
			out = append(out, op)
		}
	}
	return out
}

// ==============================
// HTTP and Kafka surfaces
// ==============================

func (f *Factory) EventHandler() *handler.EventHandler {
	return handler.NewEventHandler(f.listener, f.eventStore, f.logger)
}

// Consumer is nil when Kafka is disabled or its reader could not be built.
func (f *Factory) Consumer() *consumer.Consumer {
	if f.kafkaConsumer == nil {
		return nil
	}
	return consumer.New(f.kafkaConsumer.Reader, f.listener, f.config.Pipeline.Workers, f.logger)
}

// ==============================
// Health Checks
// ==============================

// HealthCheck reports every opened service. Services that were never
// configured are left out.
func (f *Factory) HealthCheck(ctx context.Context) map[string]error {
	results := make(map[string]error)

	if f.clickhouseClient != nil {
		results["clickhouse"] = f.clickhouseClient.HealthCheck(ctx)
	} else {
		results["clickhouse"] = fmt.Errorf("clickhouse client not initialized")
	}
	if f.redisClient != nil {
		results["redis"] = f.redisClient.HealthCheck(ctx)
	}
	if f.scyllaClient != nil {
		results["scylla"] = f.scyllaClient.HealthCheck(ctx)
	}
	if f.esClient != nil {
		results["elasticsearch"] = f.esClient.HealthCheck(ctx)
	}
	if f.kafkaProducer != nil {
		results["kafka"] = f.kafkaProducer.HealthCheck(ctx)
	}

	return results
}

func (f *Factory) Close() error {
	f.closeOnce.Do(func() {
		close(f.closed)
		f.logger.Info("Shutting down factory...")

		if f.kafkaConsumer != nil {
			if err := f.kafkaConsumer.Close(); err != nil {
				f.logger.Error("Failed to close Kafka consumer", util.ErrorField(err))
			}
		}

		if f.kafkaProducer != nil {
			if err := f.kafkaProducer.Close(); err != nil {
				f.logger.Error("Failed to close Kafka producer", util.ErrorField(err))
			} else {
				f.logger.Info("Kafka producer closed")
			}
		}

		if f.esClient != nil {
			f.esClient.Close()
			f.logger.Info("Elasticsearch client closed")
		}

		if f.scyllaClient != nil {
			f.scyllaClient.Close()
			f.logger.Info("ScyllaDB client closed")
		}

		if f.redisClient != nil {
			if err := f.redisClient.Close(); err != nil {
				f.logger.Error("Failed to close Redis client", util.ErrorField(err))
			} else {
				f.logger.Info("Redis client closed")
			}
		}

		if f.clickhouseClient != nil {
			if err := f.clickhouseClient.Close(); err != nil {
				f.logger.Error("Failed to close ClickHouse client", util.ErrorField(err))
			} else {
				f.logger.Info("ClickHouse client closed")
			}
		}

		f.logger.Info("Factory shutdown completed")
	})

	return nil
}

func (f *Factory) WaitForClose() {
	<-f.closed
}

func (f *Factory) Config() *config.Config {
	return f.config
}

func (f *Factory) TLSManager() *tls.Manager {
	return f.tlsManager
}

func (f *Factory) Listener() *service.Listener {
	return f.listener
}
