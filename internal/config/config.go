package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	LogLevel    string
	Store       StoreConfig
	Activity    ActivityConfig
	RabbitMQ    RabbitMQConfig
	MQTT        MQTTConfig
	Validation  ValidationConfig
}

// StoreConfig selects and configures the blob store backend
type StoreConfig struct {
	Backend       string
	DatabaseURL   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// ActivityConfig holds activity log settings
type ActivityConfig struct {
	ActivityKey string
	StatsKey    string
	MaxRecords  int
	Location    *time.Location
}

// RabbitMQConfig holds RabbitMQ connection and queue settings
type RabbitMQConfig struct {
	URL              string
	IngestExchange   string
	IngestQueue      string
	IngestRoutingKey string
	EventsExchange   string
	EventsRoutingKey string
	DLQQueue         string
	PrefetchCount    int
}

// MQTTConfig holds the optional device state mirror settings
type MQTTConfig struct {
	Enabled     bool
	BrokerURL   string
	ClientID    string
	TopicPrefix string
}

// ValidationConfig holds validation settings
type ValidationConfig struct {
	MaxFieldLength int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "device-activity-log"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Store: StoreConfig{
			Backend:       strings.ToLower(getEnv("STORE_BACKEND", BackendSQLite)),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
			SQLitePath:    getEnv("SQLITE_PATH", "activity.db"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_PREFIX", ""),
		},
		Activity: ActivityConfig{
			ActivityKey: getEnv("STORE_ACTIVITY_KEY", "smart_home_device_activity"),
			StatsKey:    getEnv("STORE_STATS_KEY", "smart_home_user_activity"),
			MaxRecords:  getEnvAsInt("ACTIVITY_MAX_RECORDS", 10000),
		},
		RabbitMQ: RabbitMQConfig{
			URL:              getEnv("RABBITMQ_URL", ""),
			IngestExchange:   getEnv("RABBITMQ_INGEST_EXCHANGE", "device-activity.commands.exchange"),
			IngestQueue:      getEnv("RABBITMQ_INGEST_QUEUE", "device-activity.commands.queue"),
			IngestRoutingKey: getEnv("RABBITMQ_INGEST_ROUTING_KEY", "device.state.changed"),
			EventsExchange:   getEnv("RABBITMQ_EVENTS_EXCHANGE", "device-activity.events.exchange"),
			EventsRoutingKey: getEnv("RABBITMQ_EVENTS_ROUTING_KEY", "activity.logged"),
			DLQQueue:         getEnv("RABBITMQ_DLQ_QUEUE", "device-activity.commands.dlq"),
			PrefetchCount:    getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
		MQTT: MQTTConfig{
			Enabled:     getEnvAsBool("MQTT_ENABLED", false),
			BrokerURL:   getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "device-activity-log"),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "home"),
		},
		Validation: ValidationConfig{
			MaxFieldLength: getEnvAsInt("VALIDATION_MAX_FIELD_LENGTH", 256),
		},
	}

	tzName := getEnv("ACTIVITY_TIMEZONE", "Local")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("ACTIVITY_TIMEZONE %q is not a valid time zone: %w", tzName, err)
	}
	cfg.Activity.Location = loc

	switch cfg.Store.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	case BackendPostgres:
		if cfg.Store.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("STORE_BACKEND %q is not one of memory, sqlite, postgres, redis", cfg.Store.Backend)
	}

	if cfg.Activity.MaxRecords <= 0 {
		return nil, fmt.Errorf("ACTIVITY_MAX_RECORDS must be positive, got %d", cfg.Activity.MaxRecords)
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
