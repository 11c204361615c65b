package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/context-guardian/pkg/monitor"
)

// Config holds all Context Guardian configuration.
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Alerts  AlertsConfig  `mapstructure:"alerts" yaml:"alerts"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// MonitorConfig defines classification and debounce settings.
type MonitorConfig struct {
	StaleAfter time.Duration      `mapstructure:"stale_after" yaml:"stale_after"`
	Thresholds monitor.Thresholds `mapstructure:"thresholds" yaml:"thresholds"`
	Debounce   monitor.Debounce   `mapstructure:"debounce" yaml:"debounce"`
	Commands   monitor.Commands   `mapstructure:"commands" yaml:"commands"`
}

// StorageConfig defines where snapshots are read and alert state is kept.
type StorageConfig struct {
	SnapshotDir string      `mapstructure:"snapshot_dir" yaml:"snapshot_dir"`
	Backend     string      `mapstructure:"backend" yaml:"backend"`
	StateDir    string      `mapstructure:"state_dir" yaml:"state_dir"`
	SQLitePath  string      `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Redis       RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// RedisConfig defines the Redis alert-state backend.
type RedisConfig struct {
	Addr      string        `mapstructure:"addr" yaml:"addr"`
	Password  string        `mapstructure:"password" yaml:"password,omitempty"`
	DB        int           `mapstructure:"db" yaml:"db"`
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// AlertsConfig defines alerting integrations.
type AlertsConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Slack   SlackConfig   `mapstructure:"slack" yaml:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string `mapstructure:"channel" yaml:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"url"`
	Secret  string `mapstructure:"secret" yaml:"secret,omitempty"`
}

// ServerConfig defines the status API.
type ServerConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		// Only the home directory: the hook runs inside arbitrary projects
		// whose own config.yaml must not be picked up.
		v.AddConfigPath(filepath.Join(home, ".ctxg"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("CTXG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	policy := monitor.DefaultPolicy()
	redisDefaults := defaultRedis()
	home, _ := os.UserHomeDir()

	v.SetDefault("monitor.stale_after", policy.StaleAfter)
	v.SetDefault("monitor.thresholds.warning", policy.Thresholds.Warning)
	v.SetDefault("monitor.thresholds.critical", policy.Thresholds.Critical)
	v.SetDefault("monitor.thresholds.emergency", policy.Thresholds.Emergency)
	v.SetDefault("monitor.debounce.warning", policy.Debounce.Warning)
	v.SetDefault("monitor.debounce.critical", policy.Debounce.Critical)
	v.SetDefault("monitor.debounce.emergency", policy.Debounce.Emergency)
	v.SetDefault("monitor.commands.compact", policy.Commands.Compact)
	v.SetDefault("monitor.commands.save", policy.Commands.Save)
	v.SetDefault("monitor.commands.resume", policy.Commands.Resume)

	v.SetDefault("storage.snapshot_dir", os.TempDir())
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.state_dir", os.TempDir())
	v.SetDefault("storage.sqlite_path", filepath.Join(home, ".ctxg", "state.db"))
	v.SetDefault("storage.redis.addr", redisDefaults.Addr)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", redisDefaults.KeyPrefix)
	v.SetDefault("storage.redis.ttl", redisDefaults.TTL)

	v.SetDefault("alerts.timeout", policy.NotifyTimeout)
	v.SetDefault("alerts.slack.enabled", false)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#context-alerts")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")

	v.SetDefault("server.listen", ":8787")

	// Hooks share stderr with the host; keep it quiet unless asked.
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "json")
}

func defaultRedis() RedisConfig {
	return RedisConfig{
		Addr:      "localhost:6379",
		KeyPrefix: "ctxg:alert:",
		TTL:       24 * time.Hour,
	}
}

// Policy converts the monitor settings into a monitor policy.
func (c *Config) Policy() monitor.Policy {
	return monitor.Policy{
		Thresholds:    c.Monitor.Thresholds,
		Debounce:      c.Monitor.Debounce,
		StaleAfter:    c.Monitor.StaleAfter,
		Commands:      c.Monitor.Commands,
		NotifyTimeout: c.Alerts.Timeout,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	case BackendRedis:
		if c.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}

	if c.Alerts.Timeout < 0 {
		return fmt.Errorf("alerts.timeout must not be negative")
	}
	return nil
}
