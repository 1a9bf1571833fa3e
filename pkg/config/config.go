// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Analysis, Translation, Sentiment, Redis, Kafka, History, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Translation TranslationConfig `yaml:"translation"`
	Sentiment   SentimentConfig   `yaml:"sentiment"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	History     HistoryConfig     `yaml:"history"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	RateLimit   RateLimitConfig   `yaml:"rateLimit"`
	Admin       AdminConfig       `yaml:"admin"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// HandlerTimeout bounds request handling. It must be shorter than
	// WriteTimeout so the 504 it produces can still be written.
	HandlerTimeout time.Duration `yaml:"handlerTimeout"`
	// CORSOrigins lists browser origins allowed to call the API. Entries may
	// be "*" or use a leading wildcard label, e.g. "https://*.example.org".
	CORSOrigins []string `yaml:"corsOrigins"`
	// HealthTimeout bounds each readiness check.
	HealthTimeout time.Duration `yaml:"healthTimeout"`
}

// AnalysisConfig controls the analysis pipeline limits.
type AnalysisConfig struct {
	TopWords     int `yaml:"topWords"`
	MaxTextBytes int `yaml:"maxTextBytes"`
	PreviewRunes int `yaml:"previewRunes"`
	// ScoreTimeout bounds one sentiment scoring call; 0 disables it.
	ScoreTimeout time.Duration `yaml:"scoreTimeout"`
}

// TranslationConfig controls the external translation endpoint and the
// language detector that decides whether a call is needed at all.
type TranslationConfig struct {
	Enabled          bool          `yaml:"enabled"`
	Endpoint         string        `yaml:"endpoint"`
	APIKey           string        `yaml:"apiKey"`
	TargetLanguage   string        `yaml:"targetLanguage"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
	DetectLanguages  []string      `yaml:"detectLanguages"`
}

// SentimentConfig points at VADER lexicon files. Empty paths select the
// lexicons compiled into the binary.
type SentimentConfig struct {
	LexiconPath      string `yaml:"lexiconPath"`
	EmojiLexiconPath string `yaml:"emojiLexiconPath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// HistoryConfig selects where analysis history is persisted. Driver is one
// of "postgres", "sqlite" or "none".
type HistoryConfig struct {
	Driver           string        `yaml:"driver"`
	SQLitePath       string        `yaml:"sqlitePath"`
	MaxList          int           `yaml:"maxList"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Brokers       []string      `yaml:"brokers"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Topics        KafkaTopics   `yaml:"topics"`
	BufferSize    int           `yaml:"bufferSize"`
	BatchSize     int           `yaml:"batchSize"`
	FlushInterval time.Duration `yaml:"flushInterval"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalysisEvents string `yaml:"analysisEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RateLimitConfig controls the per-client token bucket on the analyze API.
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	RequestsPerWindow int           `yaml:"requestsPerWindow"`
	Window            time.Duration `yaml:"window"`
}

// AdminConfig lists the SHA-256 hex digests of keys accepted on admin
// endpoints. An empty list leaves those endpoints open.
type AdminConfig struct {
	APIKeyHashes []string `yaml:"apiKeyHashes"`
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

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.HandlerTimeout < 0 {
		return fmt.Errorf("server.handlerTimeout must not be negative, got %s", c.Server.HandlerTimeout)
	}
	if c.Server.WriteTimeout > 0 && c.Server.HandlerTimeout >= c.Server.WriteTimeout {
		return fmt.Errorf("server.handlerTimeout (%s) must be shorter than server.writeTimeout (%s)",
			c.Server.HandlerTimeout, c.Server.WriteTimeout)
	}
	if c.Analysis.TopWords <= 0 {
		return fmt.Errorf("analysis.topWords must be positive, got %d", c.Analysis.TopWords)
	}
	if c.Analysis.MaxTextBytes <= 0 {
		return fmt.Errorf("analysis.maxTextBytes must be positive, got %d", c.Analysis.MaxTextBytes)
	}
	switch c.History.Driver {
	case "postgres", "sqlite", "none":
	default:
		return fmt.Errorf("unknown history driver %q", c.History.Driver)
	}
	for _, h := range c.Admin.APIKeyHashes {
		if len(strings.TrimSpace(h)) != 64 {
			return fmt.Errorf("admin.apiKeyHashes entries must be 64-character SHA-256 hex digests")
		}
	}
	if c.Translation.Enabled && c.Translation.Endpoint == "" {
		return fmt.Errorf("translation.endpoint is required when translation is enabled")
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			HandlerTimeout:  25 * time.Second,
			CORSOrigins:     []string{"*"},
			HealthTimeout:   2 * time.Second,
		},
		Analysis: AnalysisConfig{
			TopWords:     10,
			MaxTextBytes: 1 << 20,
			PreviewRunes: 500,
			ScoreTimeout: 5 * time.Second,
		},
		Translation: TranslationConfig{
			Enabled:          false,
			Endpoint:         "http://localhost:5000",
			TargetLanguage:   "en",
			Timeout:          10 * time.Second,
			MaxAttempts:      3,
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			DetectLanguages:  []string{"es", "en"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "textanalyzer",
			User:            "textanalyzer",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		History: HistoryConfig{
			Driver:           "sqlite",
			SQLitePath:       "textanalyzer.db",
			MaxList:          100,
			SnapshotInterval: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "textanalyzer-group",
			Topics: KafkaTopics{
				AnalysisEvents: "analysis-events",
			},
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: time.Second,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerWindow: 60,
			Window:            time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TA_TRANSLATION_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Translation.Enabled = enabled
		}
	}
	if v := os.Getenv("TA_TRANSLATION_ENDPOINT"); v != "" {
		cfg.Translation.Endpoint = v
	}
	if v := os.Getenv("TA_TRANSLATION_API_KEY"); v != "" {
		cfg.Translation.APIKey = v
	}
	if v := os.Getenv("TA_SENTIMENT_LEXICON"); v != "" {
		cfg.Sentiment.LexiconPath = v
	}
	if v := os.Getenv("TA_SENTIMENT_EMOJI_LEXICON"); v != "" {
		cfg.Sentiment.EmojiLexiconPath = v
	}
	if v := os.Getenv("TA_HISTORY_DRIVER"); v != "" {
		cfg.History.Driver = v
	}
	if v := os.Getenv("TA_HISTORY_SQLITE_PATH"); v != "" {
		cfg.History.SQLitePath = v
	}
	if v := os.Getenv("TA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TA_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("TA_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("TA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TA_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("TA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TA_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("TA_ADMIN_API_KEY_HASHES"); v != "" {
		cfg.Admin.APIKeyHashes = strings.Split(v, ",")
	}
	if v := os.Getenv("TA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("TA_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
