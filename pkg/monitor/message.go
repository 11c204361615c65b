package monitor

import (
	"fmt"
	"strconv"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

// Commands are the slash commands the directives tell the agent to run.
type Commands struct {
	Compact string `mapstructure:"compact" yaml:"compact"`
	Save    string `mapstructure:"save" yaml:"save"`
	Resume  string `mapstructure:"resume" yaml:"resume"`
}

// DefaultCommands returns the commands of the GSD workflow.
func DefaultCommands() Commands {
	return Commands{
		Compact: "/compact",
		Save:    "/gsd:pause-work",
		Resume:  "/gsd:resume-work",
	}
}

// Composer renders directive messages.
type Composer struct {
	commands Commands
}

// NewComposer creates a composer. Empty commands fall back to DefaultCommands.
func NewComposer(commands Commands) *Composer {
	def := DefaultCommands()
	if commands.Compact == "" {
		commands.Compact = def.Compact
	}
	if commands.Save == "" {
		commands.Save = def.Save
	}
	if commands.Resume == "" {
		commands.Resume = def.Resume
	}
	return &Composer{commands: commands}
}

// Compose returns the directive for level. Levels that never emit yield "".
func (c *Composer) Compose(level model.Level, used, remaining float64) string {
	u, r := formatNumber(used), formatNumber(remaining)

	switch level {
	case model.LevelEmergency:
		return fmt.Sprintf("CONTEXT MONITOR EMERGENCY: Usage at %s%%. Remaining: %s%%. ", u, r) +
			"MANDATORY ACTIONS (do these NOW, nothing else): " +
			fmt.Sprintf(`1. Output this message to the user: "CONTEXT LIMIT REACHED. Please start a new conversation. Run %s to continue where we left off." `, c.commands.Resume) +
			"2. Do NOT make any more tool calls after this response. " +
			"3. Summarize in 2-3 sentences what was being worked on and what the next step should be."
	case model.LevelCritical:
		return fmt.Sprintf("CONTEXT MONITOR CRITICAL: Usage at %s%%. Remaining: %s%%. ", u, r) +
			"ACTION REQUIRED: " +
			"1. STOP all new work immediately. " +
			fmt.Sprintf("2. If in a GSD project, run %s to save execution state. ", c.commands.Save) +
			fmt.Sprintf(`3. Tell the user: "Context window is nearly full. I recommend starting a new conversation. Use %s to continue exactly where we left off." `, c.commands.Resume) +
			"4. If no GSD project, output a brief handoff summary of current work state."
	case model.LevelWarning:
		return fmt.Sprintf("CONTEXT MONITOR WARNING: Usage at %s%%. Remaining: %s%%. ", u, r) +
			"ACTION REQUIRED: " +
			"1. Do NOT start new complex tasks. " +
			"2. Wrap up current task to a stable checkpoint. " +
			fmt.Sprintf("3. Consider running %s to free context. ", c.commands.Compact) +
			fmt.Sprintf("4. If using GSD, prepare for %s if needed.", c.commands.Save)
	default:
		return ""
	}
}

var defaultComposer = NewComposer(DefaultCommands())

// Compose renders a directive with DefaultCommands.
func Compose(level model.Level, used, remaining float64) string {
	return defaultComposer.Compose(level, used, remaining)
}

// formatNumber prints the shortest decimal form: 70, 72.5.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
