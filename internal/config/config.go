// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // schedule.timezone must resolve on hosts without zoneinfo

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/JakeFAU/article-crawler/internal/archive"
	"github.com/JakeFAU/article-crawler/internal/extract"
	"github.com/JakeFAU/article-crawler/internal/logging"
	"github.com/JakeFAU/article-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/article-crawler/internal/storage/sqlite"
	"github.com/JakeFAU/article-crawler/internal/telemetry"
)

// EnvPrefix prefixes every environment override, e.g. ARTICLECRAWLER_CRAWLER_SEED.
const EnvPrefix = "ARTICLECRAWLER"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler   CrawlerConfig    `mapstructure:"crawler"`
	Extract   extract.Config   `mapstructure:"extract"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Archive   archive.Config   `mapstructure:"archive"`
	PubSub    pubsub.Config    `mapstructure:"pubsub"`
	Server    ServerConfig     `mapstructure:"server"`
	Schedule  ScheduleConfig   `mapstructure:"schedule"`
	Logging   logging.Config   `mapstructure:"logging"`
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// CrawlerConfig governs the frontier, fetcher and worker pool.
type CrawlerConfig struct {
	Seed          string        `mapstructure:"seed"`
	MaxPages      int           `mapstructure:"max_pages"`
	Concurrency   int           `mapstructure:"concurrency"`
	Delay         time.Duration `mapstructure:"delay"`
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	// MinDepth is the minimum number of path segments of an article URL.
	MinDepth int `mapstructure:"min_depth"`
	// ExcludedTokens extends the built-in non-article path segments.
	ExcludedTokens []string `mapstructure:"excluded_tokens"`
}

// StorageConfig selects the article database.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	SQLite   sqlite.Config  `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig controls the Postgres pool.
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// Migrate applies the schema on startup.
	Migrate bool `mapstructure:"migrate"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// ScheduleConfig drives the recurring crawl.
type ScheduleConfig struct {
	// Spec is a cron expression or descriptor such as "@every 24h".
	Spec string `mapstructure:"spec"`
	// Timezone is an IANA zone name used to interpret Spec.
	Timezone string `mapstructure:"timezone"`
	// RunOnStart triggers one crawl immediately when the scheduler starts.
	RunOnStart bool `mapstructure:"run_on_start"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.seed", "https://set-ten.com/")
	v.SetDefault("crawler.max_pages", 100)
	v.SetDefault("crawler.concurrency", 3)
	v.SetDefault("crawler.delay", time.Second)
	v.SetDefault("crawler.timeout", 30*time.Second)
	v.SetDefault("crawler.user_agent", "article-crawler/1.0 (+https://github.com/JakeFAU/article-crawler)")
	v.SetDefault("crawler.respect_robots", false)
	v.SetDefault("crawler.min_depth", 2)
	v.SetDefault("crawler.excluded_tokens", []string{})
	v.SetDefault("extract.intro_max_runes", 0)
	v.SetDefault("extract.top_words", extract.DefaultTopWords)
	v.SetDefault("extract.extra_stop_words", []string{})
	v.SetDefault("extract.disable_stop_words", false)
	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.sqlite.path", "articles.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.postgres.max_conns", 4)
	v.SetDefault("storage.postgres.min_conns", 0)
	v.SetDefault("storage.postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("storage.postgres.migrate", true)
	v.SetDefault("archive.backend", archive.BackendNone)
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("archive.local.dir", "archive")
	v.SetDefault("archive.gcs.bucket", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 15*time.Second)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("schedule.spec", "@every 24h")
	v.SetDefault("schedule.timezone", "Asia/Tokyo")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.file", "")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "article-crawler")
	v.SetDefault("telemetry.version", "")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	u, err := url.Parse(c.Crawler.Seed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("crawler.seed must be an absolute http(s) URL")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxPages < 0 {
		return fmt.Errorf("crawler.max_pages must be >= 0")
	}
	if c.Crawler.Timeout <= 0 {
		return fmt.Errorf("crawler.timeout must be > 0")
	}
	if c.Crawler.Delay <= 0 {
		return fmt.Errorf("crawler.delay must be > 0")
	}
	if c.Crawler.MinDepth < 1 {
		return fmt.Errorf("crawler.min_depth must be >= 1")
	}
	if c.Extract.TopWords <= 0 {
		return fmt.Errorf("extract.top_words must be > 0")
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Storage.SQLite.Path) == "" {
			return fmt.Errorf("storage.sqlite.path is required")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Storage.Postgres.DSN) == "" {
			return fmt.Errorf("storage.postgres.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q", DriverSQLite, DriverPostgres)
	}
	switch strings.ToLower(c.Archive.Backend) {
	case "", archive.BackendNone:
	case archive.BackendLocal:
		if strings.TrimSpace(c.Archive.Local.Dir) == "" {
			return fmt.Errorf("archive.local.dir is required for the local backend")
		}
	case archive.BackendGCS:
		if strings.TrimSpace(c.Archive.GCS.Bucket) == "" {
			return fmt.Errorf("archive.gcs.bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("archive.backend must be none, local or gcs")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id is required when pubsub.topic is set")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(c.Schedule.Spec); err != nil {
		return fmt.Errorf("schedule.spec: %w", err)
	}
	return nil
}

// Location resolves Timezone, defaulting to UTC.
func (s ScheduleConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}
	return loc, nil
}
