package cli

import (
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/context-guardian/internal/config"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run as a PostToolUse hook (reads stdin, writes hook JSON to stdout)",
	Long: `Reads the hook payload from stdin, checks the session's context usage and,
when a warning is due, writes a single hookSpecificOutput document to stdout.

The command always exits 0. Any problem, including bad configuration, ends the
invocation with no output so the host's tool call is never affected.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.Default()
	}

	logger := newLogger(cfg)
	if err != nil {
		logger.Debug("config unusable, using defaults", "error", err)
	}

	m, store, err := initMonitor(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Debug("context monitor unavailable", "error", err)
		return nil
	}
	defer store.Close()

	m.ServeHook(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	return nil
}
