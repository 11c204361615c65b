package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
	"github.com/ogulcanaydogan/context-guardian/pkg/monitor"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify a usage reading and print the directive it would produce",
	Long: `Classifies a hypothetical reading with the configured thresholds and prints
the directive for its level. No snapshot or alert state is read or written.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Float64P("remaining", "r", 0, "Remaining context percentage")
	checkCmd.Flags().Float64P("used", "u", -1, "Used context percentage (default: 100 - remaining)")
	_ = checkCmd.MarkFlagRequired("remaining")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	remaining, _ := cmd.Flags().GetFloat64("remaining")
	used, _ := cmd.Flags().GetFloat64("used")
	if remaining < 0 || remaining > 100 {
		return fmt.Errorf("remaining must be between 0 and 100, got %v", remaining)
	}
	if used < 0 {
		used = 100 - remaining
	}

	policy := cfg.Policy()
	level := policy.Thresholds.Classify(remaining)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Level:    %s\n", level)
	if level == model.LevelNormal {
		return nil
	}
	fmt.Fprintf(out, "Interval: every %d calls\n", policy.Debounce.Interval(level))
	fmt.Fprintf(out, "\n%s\n", monitor.NewComposer(policy.Commands).Compose(level, used, remaining))
	return nil
}
