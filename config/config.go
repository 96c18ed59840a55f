package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/PxPatel/matching-service/internal/logger"
	"github.com/PxPatel/matching-service/internal/matching"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	API       APIConfig
	Logger    LoggerConfig
	Memory    MemoryConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Pebble    PebbleConfig
	Kafka     KafkaConfig
	Metrics   MetricsConfig
	WebSocket WebSocketConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// EngineConfig holds matching engine configuration
type EngineConfig struct {
	// LockMode is "side" (one lock per opposite queue) or "symbol"
	LockMode string
	// NodeID seeds order and trade id generation, 0..1023
	NodeID int64
	// TradeLogPath is the JSON-lines trade audit log; empty disables it
	TradeLogPath string
}

// APIConfig holds API-specific configuration
type APIConfig struct {
	DefaultListLimit      int
	MaxListLimit          int
	DefaultOrderBookDepth int
	MaxOrderBookDepth     int
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string // DEBUG, INFO, WARN, ERROR
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// MemoryConfig holds in-memory storage configuration
type MemoryConfig struct {
	Enabled   bool
	MaxOrders int
	MaxTrades int
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
}

// RedisConfig holds Redis cache configuration
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	TLSEnabled   bool
	OrderTTL     time.Duration
	MaxOrders    int
	MaxTrades    int
}

// PebbleConfig holds the local order journal configuration
type PebbleConfig struct {
	Enabled bool
	Path    string
	Sync    bool
}

// KafkaConfig holds the trade topic configuration
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

// MetricsConfig holds Prometheus configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// WebSocketConfig holds trade stream configuration
type WebSocketConfig struct {
	Enabled    bool
	SendBuffer int
}

var instance *Config

// Load loads configuration from .env file (if exists) and environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS", nil),
		},
		Engine: EngineConfig{
			LockMode:     getEnv("ENGINE_LOCK_MODE", "side"),
			NodeID:       int64(getEnvInt("NODE_ID", 1)),
			TradeLogPath: getEnv("TRADE_LOG_PATH", "trades.log"),
		},
		API: APIConfig{
			DefaultListLimit:      getEnvInt("DEFAULT_LIST_LIMIT", 100),
			MaxListLimit:          getEnvInt("MAX_LIST_LIMIT", 1000),
			DefaultOrderBookDepth: getEnvInt("DEFAULT_ORDERBOOK_DEPTH", 10),
			MaxOrderBookDepth:     getEnvInt("MAX_ORDERBOOK_DEPTH", 50),
		},
		Logger: LoggerConfig{
			Level:      strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
			FilePath:   getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Memory: MemoryConfig{
			Enabled:   getEnvBool("MEMORY_ENABLED", true),
			MaxOrders: getEnvInt("MEMORY_MAX_ORDERS", 100000),
			MaxTrades: getEnvInt("MEMORY_MAX_TRADES", 1000),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DATABASE_ENABLED", false),
			Host:            getEnv("DATABASE_HOST", "localhost"),
			Port:            getEnvInt("DATABASE_PORT", 5432),
			Name:            getEnv("DATABASE_NAME", "matching_engine"),
			User:            getEnv("DATABASE_USER", "postgres"),
			Password:        getEnv("DATABASE_PASSWORD", ""),
			MaxConns:        getEnvInt("DATABASE_MAX_CONNECTIONS", 20),
			MaxIdleConns:    getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime: getEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			SSLMode:         getEnv("DATABASE_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			MaxRetries:   getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			TLSEnabled:   getEnvBool("REDIS_TLS_ENABLED", false),
			OrderTTL:     getEnvDuration("REDIS_ORDER_TTL", 24*time.Hour),
			MaxOrders:    getEnvInt("REDIS_MAX_ORDERS", 50000),
			MaxTrades:    getEnvInt("REDIS_MAX_TRADES", 10000),
		},
		Pebble: PebbleConfig{
			Enabled: getEnvBool("PEBBLE_ENABLED", false),
			Path:    getEnv("PEBBLE_PATH", "data/orders"),
			Sync:    getEnvBool("PEBBLE_SYNC", false),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:        getEnv("KAFKA_TRADES_TOPIC", "trades"),
			WriteTimeout: getEnvDuration("KAFKA_WRITE_TIMEOUT", 2*time.Second),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		WebSocket: WebSocketConfig{
			Enabled:    getEnvBool("WEBSOCKET_ENABLED", true),
			SendBuffer: getEnvInt("WEBSOCKET_SEND_BUFFER", 256),
		},
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	instance = cfg
	return cfg, nil
}

// Get returns the singleton config instance
func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	// Validate engine config
	if _, err := matching.ParseLockMode(c.Engine.LockMode); err != nil {
		return fmt.Errorf("ENGINE_LOCK_MODE: %w", err)
	}
	if c.Engine.NodeID < 0 || c.Engine.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be within 0..1023")
	}

	// Validate API config
	if c.API.DefaultListLimit < 1 {
		return fmt.Errorf("DEFAULT_LIST_LIMIT must be > 0")
	}
	if c.API.MaxListLimit < c.API.DefaultListLimit {
		return fmt.Errorf("MAX_LIST_LIMIT must be >= DEFAULT_LIST_LIMIT")
	}
	if c.API.DefaultOrderBookDepth < 1 {
		return fmt.Errorf("DEFAULT_ORDERBOOK_DEPTH must be > 0")
	}
	if c.API.MaxOrderBookDepth < c.API.DefaultOrderBookDepth {
		return fmt.Errorf("MAX_ORDERBOOK_DEPTH must be >= DEFAULT_ORDERBOOK_DEPTH")
	}

	// Validate logger config
	if _, err := logger.ParseLevel(c.Logger.Level); err != nil || c.Logger.Level == "" {
		return fmt.Errorf("LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	// At least one layer must hold orders for lookups to work
	if !c.Memory.Enabled && !c.Redis.Enabled && !c.Database.Enabled && !c.Pebble.Enabled {
		return fmt.Errorf("at least one order store must be enabled")
	}
	if c.Memory.Enabled && (c.Memory.MaxOrders < 1 || c.Memory.MaxTrades < 1) {
		return fmt.Errorf("MEMORY_MAX_ORDERS and MEMORY_MAX_TRADES must be > 0")
	}
	if c.Pebble.Enabled && c.Pebble.Path == "" {
		return fmt.Errorf("PEBBLE_PATH cannot be empty")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		return fmt.Errorf("KAFKA_BROKERS and KAFKA_TRADES_TOPIC are required when Kafka is enabled")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("METRICS_PATH must start with /")
	}

	return nil
}

// LockMode returns the parsed engine lock mode
func (c *Config) LockMode() matching.LockMode {
	mode, _ := matching.ParseLockMode(c.Engine.LockMode)
	return mode
}

// Helper functions to read environment variables with defaults

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
