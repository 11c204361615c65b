package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect per-session alert state",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored alert states",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show snapshot, level and alert state for one session",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateShowCmd)

	stateListCmd.Flags().StringP("output", "o", "table", "Output format (table, yaml, json)")
	stateShowCmd.Flags().StringP("output", "o", "yaml", "Output format (yaml, json)")
}

func runStateList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("output")

	m, store, err := initMonitor(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	states, err := m.Sessions(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == "table" {
		if len(states) == 0 {
			fmt.Fprintln(out, "No alert state stored.")
			return nil
		}
		renderStateTable(out, states)
		return nil
	}
	if states == nil {
		states = []model.SessionAlertState{}
	}
	return render(out, format, states)
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("output")

	m, store, err := initMonitor(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := m.Inspect(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("inspect %s: %w", args[0], err)
	}
	return render(cmd.OutOrStdout(), format, status)
}

func renderStateTable(out io.Writer, states []model.SessionAlertState) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SESSION\tLAST LEVEL\tCALLS SINCE WARN\tUPDATED\n")
	for _, s := range states {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.SessionID,
			s.State.LastLevel,
			s.State.CallsSinceWarn,
			s.UpdatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()
}

// render writes v as YAML or indented JSON.
func render(out io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
