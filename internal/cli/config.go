package cli

import (
	"github.com/spf13/cobra"
)

const redacted = "********"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shown := *cfg
	if shown.Storage.Redis.Password != "" {
		shown.Storage.Redis.Password = redacted
	}
	if shown.Alerts.Webhook.Secret != "" {
		shown.Alerts.Webhook.Secret = redacted
	}
	// Slack incoming-webhook URLs carry their token in the path
	if shown.Alerts.Slack.WebhookURL != "" {
		shown.Alerts.Slack.WebhookURL = redacted
	}

	return render(cmd.OutOrStdout(), "yaml", shown)
}
