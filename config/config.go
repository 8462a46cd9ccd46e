package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Postgres PostgresConfig
	Source   SourceConfig
	Sync     SyncConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Otel     OtelConfig
}

type ServerConfig struct {
	AppEnv   string
	HTTPPort string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
	AutoMigrate     bool
}

// SourceConfig points at the ERP database. The connection is read-only and
// opened per query.
type SourceConfig struct {
	Host           string
	Port           string
	DBName         string
	User           string
	Password       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

type SyncConfig struct {
	Interval            time.Duration
	BatchSize           int
	DefaultCategoryIcon string
	DefaultProductImage string
	LockTTL             time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// KafkaConfig carries the order event topic and the ERP sync request topic.
// An empty SyncTopic disables the sync request listener.
type KafkaConfig struct {
	Enabled   bool
	Brokers   []string
	Topic     string
	SyncTopic string
	GroupID   string
}

type OtelConfig struct {
	ServiceName string
	Endpoint    string
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			HTTPPort: getEnv("HTTP_PORT", ":8080"),
			GRPCPort: getEnv("GRPC_PORT", ":8082"),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5433"),
			User:            getEnv("POSTGRES_USER", "omnipos"),
			Password:        getEnv("POSTGRES_PASSWORD", "omnipos"),
			DBName:          getEnv("POSTGRES_DB", "omnipos_catalog"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
			AutoMigrate:     getEnvBool("POSTGRES_AUTO_MIGRATE", true),
		},
		Source: SourceConfig{
			Host:           getEnv("SOURCE_DB_HOST", "localhost"),
			Port:           getEnv("SOURCE_DB_PORT", "3306"),
			DBName:         getEnv("SOURCE_DB_NAME", "erp"),
			User:           getEnv("SOURCE_DB_USER", "readonly"),
			Password:       getEnv("SOURCE_DB_PASSWORD", ""),
			ConnectTimeout: getEnvDuration("SOURCE_CONNECT_TIMEOUT", 10*time.Second),
			QueryTimeout:   getEnvDuration("SOURCE_QUERY_TIMEOUT", 60*time.Second),
		},
		Sync: SyncConfig{
			Interval:            getEnvDuration("SYNC_INTERVAL", time.Hour),
			BatchSize:           getEnvInt("SYNC_BATCH_SIZE", 100),
			DefaultCategoryIcon: getEnv("SYNC_DEFAULT_CATEGORY_ICON", "icons/category-default.svg"),
			DefaultProductImage: getEnv("SYNC_DEFAULT_PRODUCT_IMAGE", "images/product-placeholder.png"),
			LockTTL:             getEnvDuration("SYNC_LOCK_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Enabled:   getEnvBool("KAFKA_ENABLED", false),
			Brokers:   getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:     getEnv("KAFKA_TOPIC_ORDERS", "orders.events"),
			SyncTopic: getEnv("KAFKA_TOPIC_SYNC_REQUESTS", "catalog.sync.requests"),
			GroupID:   getEnv("KAFKA_GROUP_ID", "omnipos-catalog-service"),
		},
		Otel: OtelConfig{
			ServiceName: getEnv("SERVICE_NAME", "omnipos-catalog-service"),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return fallback
}
