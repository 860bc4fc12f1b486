// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Analyzer  AnalyzerConfig  `mapstructure:"analyzer"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SchedulerConfig governs the scheduling loop and worker fan-out.
type SchedulerConfig struct {
	PeriodSeconds  int `mapstructure:"period_seconds"`
	Concurrency    int `mapstructure:"concurrency"`
	QueueDepth     int `mapstructure:"queue_depth"`
	LockTTLSeconds int `mapstructure:"lock_ttl_seconds"`
}

// FetchConfig configures the generic HTTP fetch path.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	ContentCap     int    `mapstructure:"content_cap"`
	SessionRetries int    `mapstructure:"session_retries"`
}

// BrowserConfig configures the shared authenticated browser session.
type BrowserConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	RemoteURL            string `mapstructure:"remote_url"`
	LoginURL             string `mapstructure:"login_url"`
	Username             string `mapstructure:"username"`
	Password             string `mapstructure:"password"`
	NavTimeoutSeconds    int    `mapstructure:"nav_timeout_seconds"`
	AuthTimeoutSeconds   int    `mapstructure:"auth_timeout_seconds"`
	CreateRetries        int    `mapstructure:"create_retries"`
	CreateBackoffSeconds int    `mapstructure:"create_backoff_seconds"`
}

// AnalyzerConfig points at the semantic analyzer endpoint.
type AnalyzerConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// NotifierConfig points at the external mail dispatcher.
type NotifierConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for change-event publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig sets where raw fetched payloads are kept.
type ArchiveConfig struct {
	Provider    string `mapstructure:"provider"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	BaseDir     string `mapstructure:"base_dir"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITEWATCH")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("scheduler.period_seconds", 60)
	v.SetDefault("scheduler.concurrency", 3)
	v.SetDefault("scheduler.queue_depth", 64)
	v.SetDefault("scheduler.lock_ttl_seconds", 300)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.user_agent", "sitewatch-bot/0.1")
	v.SetDefault("fetch.content_cap", 10000)
	v.SetDefault("fetch.session_retries", 2)
	v.SetDefault("browser.enabled", false)
	v.SetDefault("browser.nav_timeout_seconds", 25)
	v.SetDefault("browser.auth_timeout_seconds", 300)
	v.SetDefault("browser.create_retries", 3)
	v.SetDefault("browser.create_backoff_seconds", 2)
	v.SetDefault("analyzer.timeout_seconds", 30)
	v.SetDefault("notifier.timeout_seconds", 10)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scheduler.PeriodSeconds <= 0 {
		return fmt.Errorf("scheduler.period_seconds must be > 0")
	}
	if c.Scheduler.Concurrency <= 0 {
		return fmt.Errorf("scheduler.concurrency must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Fetch.ContentCap <= 0 {
		return fmt.Errorf("fetch.content_cap must be > 0")
	}
	if c.Browser.Enabled && c.Browser.LoginURL == "" {
		return fmt.Errorf("browser.login_url must be set when browser is enabled")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket must be set when archive.provider is gcs")
	}
	if c.Archive.Provider == "local" && c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set when archive.provider is local")
	}
	return nil
}

// SchedulerPeriod converts the configured loop period into a duration.
func (c Config) SchedulerPeriod() time.Duration {
	return time.Duration(c.Scheduler.PeriodSeconds) * time.Second
}

// LockTTL converts the per-target lock TTL into a duration.
func (c Config) LockTTL() time.Duration {
	return time.Duration(c.Scheduler.LockTTLSeconds) * time.Second
}

// FetchTimeout converts the HTTP fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
