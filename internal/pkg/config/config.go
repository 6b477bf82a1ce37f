package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/adrecipro/adquiz/pkg/logger"
)

// Store drivers.
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Port            string        `env:"PORT,             default=8080"`
	Env             string        `env:"ENV,              default=development"`
	JWTSecret       string        `env:"JWT_SECRET"`
	LogLevel        string        `env:"LOG_LEVEL,        default=info"`
	StoreDriver     string        `env:"STORE_DRIVER,     default=mongo"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Feed    FeedConfig
	Workers WorkerConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=adquiz"`
}

type RedisConfig struct {
	// Addr empty disables Redis; the in-process notifier and dedup are used instead.
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type GeminiConfig struct {
	APIKey  string `env:"GEMINI_API_KEY"`
	Model   string `env:"GEMINI_MODEL,    default=gemini-2.5-flash"`
	BaseURL string `env:"GEMINI_BASE_URL, default=https://generativelanguage.googleapis.com/v1beta"`
}

type StorageConfig struct {
	Dir       string `env:"STORAGE_DIR,        default=./data/media"`
	PublicURL string `env:"STORAGE_PUBLIC_URL, default=http://localhost:8080/media"`
}

type FeedConfig struct {
	CandidateLimit     int           `env:"FEED_CANDIDATE_LIMIT, default=50"`
	ExcludeOwnAds      bool          `env:"FEED_EXCLUDE_OWN_ADS, default=false"`
	ImpressionDedupTTL time.Duration `env:"IMPRESSION_DEDUP_TTL, default=24h"`
}

type WorkerConfig struct {
	CounterWorkers int `env:"COUNTER_WORKERS, default=4"`
}

// IsDevelopment reports whether the service runs with developer conveniences
// such as pretty console logs.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks the combinations go-envconfig cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.JWTSecret == "" && !c.IsDevelopment() {
		return fmt.Errorf("config: JWT_SECRET is required outside development")
	}
	if c.Workers.CounterWorkers <= 0 {
		return fmt.Errorf("config: COUNTER_WORKERS must be positive")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LOG_LEVEL: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadWith(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadWith reads configuration from an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
