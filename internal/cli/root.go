package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/context-guardian/internal/config"
	"github.com/ogulcanaydogan/context-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/context-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/context-guardian/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ctxg",
	Short: "Context Guardian - context window usage monitor for agent sessions",
	Long: `Context Guardian watches how much of an agent session's context window is left.
Installed as a PostToolUse hook it classifies the latest usage snapshot and,
with debouncing and escalation, tells the agent to wrap up, save state or stop
before the window runs out.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.ctxg/config.yaml)")
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStores opens the snapshot store and the configured alert-state backend.
// Snapshots always come from files written by the statusline bridge.
func initStores(ctx context.Context, cfg *config.Config) (*storage.FileStore, storage.AlertStateStore, error) {
	files, err := storage.NewFileStore(cfg.Storage.SnapshotDir, cfg.Storage.StateDir)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		db, err := storage.NewSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return files, db, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		store, err := storage.NewRedis(client, storage.RedisConfig{
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
			TTL:       cfg.Storage.Redis.TTL,
		})
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return files, store, nil

	default:
		return files, files, nil
	}
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) []alerts.Notifier {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	return notifiers
}

// initMonitor creates a fully wired monitor. The returned store must be
// closed by the caller.
func initMonitor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*monitor.Monitor, storage.AlertStateStore, error) {
	snapshots, states, err := initStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	m := monitor.New(snapshots, states, cfg.Policy(), initNotifiers(cfg), logger)
	return m, states, nil
}
