package monitor

import (
	"fmt"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

// Debounce holds the minimum number of invocations between two emissions
// at each level.
type Debounce struct {
	Warning   int `mapstructure:"warning" yaml:"warning"`
	Critical  int `mapstructure:"critical" yaml:"critical"`
	Emergency int `mapstructure:"emergency" yaml:"emergency"`
}

// DefaultDebounce returns 5/3/1. Emergency repeats on every invocation.
func DefaultDebounce() Debounce {
	return Debounce{
		Warning:   5,
		Critical:  3,
		Emergency: 1,
	}
}

// Validate requires every interval to be at least 1.
func (d Debounce) Validate() error {
	if d.Warning < 1 || d.Critical < 1 || d.Emergency < 1 {
		return fmt.Errorf("debounce intervals must be >= 1, got warning=%d critical=%d emergency=%d",
			d.Warning, d.Critical, d.Emergency)
	}
	return nil
}

// Interval returns the debounce interval for level.
func (d Debounce) Interval(level model.Level) int {
	var n int
	switch level {
	case model.LevelWarning:
		n = d.Warning
	case model.LevelCritical:
		n = d.Critical
	case model.LevelEmergency:
		n = d.Emergency
	}
	return max(n, 1)
}

// escalations is the transition table of the alert state machine: for each
// level that can be emitted, which previously emitted levels it overrides
// regardless of the debounce counter. Transitions missing here, including
// every downgrade, go through the normal debounce path.
var escalations = map[model.Level]func(last model.Level) bool{
	model.LevelCritical: func(last model.Level) bool {
		return last == model.LevelWarning
	},
	model.LevelEmergency: func(last model.Level) bool {
		return last.Rank() < model.LevelEmergency.Rank()
	},
}

// Escalated reports whether moving from last to current bypasses debounce.
func Escalated(current, last model.Level) bool {
	rule, ok := escalations[current]
	return ok && rule(last)
}

// Decision is the outcome of one pass through the debounce engine.
type Decision struct {
	Emit      bool
	First     bool
	Escalated bool
	Interval  int

	// State is what must be persisted, whether or not Emit is set.
	State model.AlertState
}

// Decide advances the alert state for one invocation at level.
// A nil prior means no warning was ever emitted for the session.
func (d Debounce) Decide(level model.Level, prior *model.AlertState) Decision {
	var state model.AlertState
	if prior != nil {
		state = *prior
	}
	state.CallsSinceWarn++

	dec := Decision{
		First:     prior == nil,
		Escalated: Escalated(level, state.LastLevel),
		Interval:  d.Interval(level),
	}
	dec.Emit = dec.First || dec.Escalated || state.CallsSinceWarn >= dec.Interval

	if dec.Emit {
		state.CallsSinceWarn = 0
		state.LastLevel = level
	}
	dec.State = state
	return dec
}
