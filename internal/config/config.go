package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/tomashoffer/possible-cheaters/internal/db"
)

// Config holds all job configuration loaded from environment variables.
type Config struct {
	Input    InputConfig
	Store    StoreConfig
	BanStore BanStoreConfig
	Log      LogConfig
	Cache    CacheConfig
	Metrics  MetricsConfig

	// Timezone is the location epoch timestamps are converted in before
	// comparing calendar dates.
	Timezone string `envconfig:"CHEATERS_TIMEZONE" default:"UTC"`
}

// InputConfig holds the paths of the daily exports.
type InputConfig struct {
	ClientFile string `envconfig:"CHEATERS_CLIENT_FILE" default:"client.csv"`
	ServerFile string `envconfig:"CHEATERS_SERVER_FILE" default:"server.csv"`
}

// StoreConfig holds the output database settings.
type StoreConfig struct {
	Driver string `envconfig:"CHEATERS_DB_DRIVER" default:"sqlite"` // sqlite, postgres or mysql
	DSN    string `envconfig:"CHEATERS_DB_DSN" default:"cheaters.db"`
}

// BanStoreConfig points the ban registry at a separate database. When
// Driver is empty the output store is used.
type BanStoreConfig struct {
	Driver string `envconfig:"CHEATERS_BAN_DB_DRIVER" default:""`
	DSN    string `envconfig:"CHEATERS_BAN_DB_DSN" default:""`
}

type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"`
}

// CacheConfig holds the ban cache settings. The cache is disabled when
// RedisAddr is empty.
type CacheConfig struct {
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:""`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL           time.Duration `envconfig:"BAN_CACHE_TTL" default:"10m"`
}

type MetricsConfig struct {
	PushgatewayURL string `envconfig:"PUSHGATEWAY_URL" default:""`
	JobName        string `envconfig:"METRICS_JOB_NAME" default:"possible_cheaters"`
}

// SeparateBanStore reports whether bans are read from their own database.
func (c *Config) SeparateBanStore() bool {
	return c.BanStore.Driver != ""
}

// Location returns the processing timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks driver names and the timezone.
func (c *Config) Validate() error {
	if !db.Driver(c.Store.Driver).Valid() {
		return fmt.Errorf("unsupported CHEATERS_DB_DRIVER %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return fmt.Errorf("CHEATERS_DB_DSN is required")
	}
	if c.SeparateBanStore() {
		if !db.Driver(c.BanStore.Driver).Valid() {
			return fmt.Errorf("unsupported CHEATERS_BAN_DB_DRIVER %q", c.BanStore.Driver)
		}
		if c.BanStore.DSN == "" {
			return fmt.Errorf("CHEATERS_BAN_DB_DSN is required when CHEATERS_BAN_DB_DRIVER is set")
		}
	}
	if c.Input.ClientFile == "" || c.Input.ServerFile == "" {
		return fmt.Errorf("both CHEATERS_CLIENT_FILE and CHEATERS_SERVER_FILE are required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Load reads configuration from a .env file, if present, and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
