// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem (Corpus, Output, Server, Redis, Postgres, Kafka, Search, ...).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Output    OutputConfig    `yaml:"output"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Search    SearchConfig    `yaml:"search"`
	Export    ExportConfig    `yaml:"export"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CorpusConfig points at the raw classification corpus files.
type CorpusConfig struct {
	QrelsPath   string   `yaml:"qrelsPath"`
	VectorPaths []string `yaml:"vectorPaths"`
	StemsPath   string   `yaml:"stemsPath"`
	// LineLimit caps the lines read from each file; negative reads everything.
	LineLimit int `yaml:"lineLimit"`
}

// OutputConfig controls where JSON dumps and binary index snapshots go.
type OutputConfig struct {
	JSONDir     string `yaml:"jsonDir"`
	SnapshotDir string `yaml:"snapshotDir"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RedisConfig holds Redis connection and result caching parameters.
type RedisConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Addr           string        `yaml:"addr"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	PoolSize       int           `yaml:"poolSize"`
	CacheTTL       time.Duration `yaml:"cacheTTL"`
	LocalCacheSize int           `yaml:"localCacheSize"`
}

// PostgresConfig holds PostgreSQL connection parameters for the matrix sink.
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
	ExportTable     string        `yaml:"exportTable"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	Commands    string `yaml:"commands"`
	Results     string `yaml:"results"`
	QueryEvents string `yaml:"queryEvents"`
}

// SearchConfig shapes ranked queries arriving over HTTP. DefaultK applies when
// a request names no k; requests above MaxK are rejected.
type SearchConfig struct {
	DefaultK int `yaml:"defaultK"`
	MaxK     int `yaml:"maxK"`
}

// ExportConfig controls the full-matrix export.
type ExportConfig struct {
	MaxRows int `yaml:"maxRows"`
	// Dir holds files exported on behalf of HTTP and Kafka callers, who may
	// only name paths inside it.
	Dir string `yaml:"dir"`
	// Workers is the number of categories scored concurrently.
	Workers int `yaml:"workers"`
}

// AnalyticsConfig controls query event publishing. A positive
// SnapshotInterval also stores aggregated stats in PostgreSQL.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), loads a .env file from the
// working directory when present, and applies environment-variable overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot drive a build or a query.
func (c *Config) Validate() error {
	if c.Search.DefaultK < 1 {
		return fmt.Errorf("search.defaultK must be positive, got %d", c.Search.DefaultK)
	}
	if c.Search.MaxK < c.Search.DefaultK {
		return fmt.Errorf("search.maxK (%d) must be >= search.defaultK (%d)", c.Search.MaxK, c.Search.DefaultK)
	}
	if c.Export.MaxRows < 1 {
		return fmt.Errorf("export.maxRows must be positive, got %d", c.Export.MaxRows)
	}
	if c.Export.Workers < 1 {
		return fmt.Errorf("export.workers must be positive, got %d", c.Export.Workers)
	}
	return nil
}

// Default returns the built-in configuration without reading files or env.
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			QrelsPath: "data/rcv1-v2.topics.qrels.txt",
			VectorPaths: []string{
				"data/lyrl2004_vectors_test_pt0.dat.txt",
				"data/lyrl2004_vectors_test_pt1.dat.txt",
				"data/lyrl2004_vectors_test_pt2.dat.txt",
				"data/lyrl2004_vectors_test_pt3.dat.txt",
				"data/lyrl2004_vectors_train.dat.txt",
			},
			StemsPath: "data/stem.termid.idf.map.txt",
			LineLimit: -1,
		},
		Output: OutputConfig{
			JSONDir:     "json_files",
			SnapshotDir: "data/snapshot",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			Enabled:        false,
			Addr:           "localhost:6379",
			PoolSize:       10,
			CacheTTL:       10 * time.Minute,
			LocalCacheSize: 1024,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "catsim",
			User:            "catsim",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ExportTable:     "jaccard_scores",
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "catsim-group",
			Topics: KafkaTopics{
				Commands:    "similarity-commands",
				Results:     "similarity-results",
				QueryEvents: "similarity-query-events",
			},
		},
		Search: SearchConfig{
			DefaultK: 50,
			MaxK:     10000,
		},
		Export: ExportConfig{
			MaxRows: 1048570,
			Dir:     "exports",
			Workers: 4,
		},
		Analytics: AnalyticsConfig{
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CS_CORPUS_QRELS"); v != "" {
		cfg.Corpus.QrelsPath = v
	}
	if v := os.Getenv("CS_CORPUS_VECTORS"); v != "" {
		cfg.Corpus.VectorPaths = strings.Split(v, ",")
	}
	if v := os.Getenv("CS_CORPUS_STEMS"); v != "" {
		cfg.Corpus.StemsPath = v
	}
	if v := os.Getenv("CS_CORPUS_LINE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Corpus.LineLimit = n
		}
	}
	if v := os.Getenv("CS_OUTPUT_JSON_DIR"); v != "" {
		cfg.Output.JSONDir = v
	}
	if v := os.Getenv("CS_OUTPUT_SNAPSHOT_DIR"); v != "" {
		cfg.Output.SnapshotDir = v
	}
	if v := os.Getenv("CS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("CS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("CS_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
	if v := os.Getenv("CS_EXPORT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Export.Workers = n
		}
	}
	if v := os.Getenv("CS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
