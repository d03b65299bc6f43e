// Package config loads application settings from a YAML file, fills gaps
// with defaults, and finally applies BG_* environment overrides. Every
// subsystem (server, storage, Kafka, indexing, graph, centrality, search)
// gets a typed section.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where binaries look for a config file when -config is not
// overridden. A missing file at this path is not an error; defaults apply.
const DefaultPath = "configs/development.yaml"

// Config is the root of all subsystem settings.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Graph      GraphConfig      `yaml:"graph"`
	Centrality CentralityConfig `yaml:"centrality"`
	Search     SearchConfig     `yaml:"search"`
	Logging    LoggingConfig    `yaml:"logging"`
	Tracing    TracingConfig    `yaml:"tracing"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ServerConfig sizes the HTTP listener and its shutdown grace period.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// StorageConfig selects the persistence backend. Driver is one of
// "postgres", "sqlite", or "memory".
type StorageConfig struct {
	Driver string `yaml:"driver"`
}

// PostgresConfig carries the connection and pool parameters for the
// primary store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN renders the parameters as a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// KafkaConfig names the brokers, the consumer group, and the topics the
// services exchange events on.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics binds each logical event stream to a concrete topic.
type KafkaTopics struct {
	DocumentIngest  string `yaml:"documentIngest"`
	IndexComplete   string `yaml:"indexComplete"`
	CacheInvalidate string `yaml:"cacheInvalidate"`
	SearchEvents    string `yaml:"searchEvents"`
}

// RedisConfig locates the query cache and sets its entry TTL.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// IndexingConfig controls the tokenizer gate and top-term extraction.
type IndexingConfig struct {
	DataDir         string        `yaml:"dataDir"`
	MinTokenCount   int           `yaml:"minTokenCount"`
	TopTermsK       int           `yaml:"topTermsK"`
	CheckpointEvery int           `yaml:"checkpointEvery"`
	RebuildInterval time.Duration `yaml:"rebuildInterval"`
}

// GraphConfig controls the similarity graph build.
type GraphConfig struct {
	Threshold  float64 `yaml:"threshold"`
	FlushEvery int     `yaml:"flushEvery"`
	Workers    int     `yaml:"workers"`
}

// CentralityConfig controls the centrality engine.
type CentralityConfig struct {
	Damping       float64       `yaml:"damping"`
	MaxIterations int           `yaml:"maxIterations"`
	Tolerance     float64       `yaml:"tolerance"`
	Workers       int           `yaml:"workers"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
}

// SearchConfig bounds result set sizes and per-query time.
type SearchConfig struct {
	MaxResults   int           `yaml:"maxResults"`
	DefaultLimit int           `yaml:"defaultLimit"`
	Timeout      time.Duration `yaml:"timeout"`
}

// LoggingConfig picks the slog level and output encoding.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for the batch pipelines.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig toggles the Prometheus endpoint and picks its port.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if present) and applies environment-variable
// overrides. A missing file at DefaultPath falls back to defaults; a missing
// file at any other path is an error.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && path == DefaultPath:
			// fall through to defaults
		default:
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// defaultConfig carries the local-development defaults every deployment
// starts from.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "postgres",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "bibliograph",
			User:            "bibliograph",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "data/bibliograph.db",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "bibliograph-group",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				IndexComplete:   "index-complete",
				CacheInvalidate: "cache-invalidate",
				SearchEvents:    "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Indexing: IndexingConfig{
			DataDir:         "data/corpus",
			MinTokenCount:   10000,
			TopTermsK:       50,
			CheckpointEvery: 20,
			RebuildInterval: 2 * time.Minute,
		},
		Graph: GraphConfig{
			Threshold:  0.5,
			FlushEvery: 10000,
			Workers:    4,
		},
		Centrality: CentralityConfig{
			Damping:       0.85,
			MaxIterations: 100,
			Tolerance:     1e-6,
			Workers:       4,
			WriteTimeout:  2 * time.Minute,
		},
		Search: SearchConfig{
			MaxResults:   500,
			DefaultLimit: 50,
			Timeout:      10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides maps BG_* environment variables onto their config
// fields. Unset variables leave the field alone; unparseable numbers are
// ignored rather than fatal.
func applyEnvOverrides(cfg *Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setInt("BG_SERVER_PORT", &cfg.Server.Port)
	setString("BG_STORAGE_DRIVER", &cfg.Storage.Driver)
	setString("BG_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("BG_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("BG_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("BG_POSTGRES_USER", &cfg.Postgres.User)
	setString("BG_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("BG_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	setString("BG_SQLITE_PATH", &cfg.SQLite.Path)
	if v := os.Getenv("BG_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("BG_REDIS_ADDR", &cfg.Redis.Addr)
	setString("BG_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("BG_INDEXING_DATA_DIR", &cfg.Indexing.DataDir)
	setString("BG_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("BG_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("BG_METRICS_PORT", &cfg.Metrics.Port)
}
