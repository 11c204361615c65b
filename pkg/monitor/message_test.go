package monitor_test

import (
	"testing"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
	"github.com/ogulcanaydogan/context-guardian/pkg/monitor"
	"github.com/stretchr/testify/assert"
)

func TestCompose_Warning(t *testing.T) {
	msg := monitor.Compose(model.LevelWarning, 70, 30)
	assert.Equal(t, "CONTEXT MONITOR WARNING: Usage at 70%. Remaining: 30%. "+
		"ACTION REQUIRED: "+
		"1. Do NOT start new complex tasks. "+
		"2. Wrap up current task to a stable checkpoint. "+
		"3. Consider running /compact to free context. "+
		"4. If using GSD, prepare for /gsd:pause-work if needed.", msg)
}

func TestCompose_Critical(t *testing.T) {
	msg := monitor.Compose(model.LevelCritical, 80, 20)
	assert.Equal(t, "CONTEXT MONITOR CRITICAL: Usage at 80%. Remaining: 20%. "+
		"ACTION REQUIRED: "+
		"1. STOP all new work immediately. "+
		"2. If in a GSD project, run /gsd:pause-work to save execution state. "+
		`3. Tell the user: "Context window is nearly full. I recommend starting a new conversation. Use /gsd:resume-work to continue exactly where we left off." `+
		"4. If no GSD project, output a brief handoff summary of current work state.", msg)
}

func TestCompose_Emergency(t *testing.T) {
	msg := monitor.Compose(model.LevelEmergency, 90, 10)
	assert.Equal(t, "CONTEXT MONITOR EMERGENCY: Usage at 90%. Remaining: 10%. "+
		"MANDATORY ACTIONS (do these NOW, nothing else): "+
		`1. Output this message to the user: "CONTEXT LIMIT REACHED. Please start a new conversation. Run /gsd:resume-work to continue where we left off." `+
		"2. Do NOT make any more tool calls after this response. "+
		"3. Summarize in 2-3 sentences what was being worked on and what the next step should be.", msg)
}

func TestCompose_FractionalValues(t *testing.T) {
	msg := monitor.Compose(model.LevelWarning, 72.5, 27.5)
	assert.Contains(t, msg, "Usage at 72.5%. Remaining: 27.5%.")
}

func TestCompose_NonAlertLevels(t *testing.T) {
	assert.Empty(t, monitor.Compose(model.LevelNormal, 10, 90))
	assert.Empty(t, monitor.Compose(model.LevelNone, 10, 90))
}

func TestComposer_CustomCommands(t *testing.T) {
	c := monitor.NewComposer(monitor.Commands{Save: "/save-state"})

	msg := c.Compose(model.LevelWarning, 70, 30)
	assert.Contains(t, msg, "prepare for /save-state if needed")
	assert.Contains(t, msg, "Consider running /compact")

	msg = c.Compose(model.LevelEmergency, 95, 5)
	assert.Contains(t, msg, "Run /gsd:resume-work to continue")
}
