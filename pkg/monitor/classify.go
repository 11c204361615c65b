package monitor

import (
	"fmt"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

// Thresholds are remaining-context breakpoints, in percent. Each bound is
// inclusive on the more urgent side.
type Thresholds struct {
	Warning   float64 `mapstructure:"warning" yaml:"warning"`
	Critical  float64 `mapstructure:"critical" yaml:"critical"`
	Emergency float64 `mapstructure:"emergency" yaml:"emergency"`
}

// DefaultThresholds returns the standard 35/25/15 breakpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Warning:   35,
		Critical:  25,
		Emergency: 15,
	}
}

// Validate requires 0 <= emergency < critical < warning <= 100.
func (t Thresholds) Validate() error {
	if t.Emergency < 0 || t.Warning > 100 {
		return fmt.Errorf("thresholds must be within 0-100, got warning=%v critical=%v emergency=%v",
			t.Warning, t.Critical, t.Emergency)
	}
	if !(t.Emergency < t.Critical && t.Critical < t.Warning) {
		return fmt.Errorf("thresholds must satisfy emergency < critical < warning, got warning=%v critical=%v emergency=%v",
			t.Warning, t.Critical, t.Emergency)
	}
	return nil
}

// Classify maps a remaining percentage to a level.
func (t Thresholds) Classify(remaining float64) model.Level {
	switch {
	case remaining <= t.Emergency:
		return model.LevelEmergency
	case remaining <= t.Critical:
		return model.LevelCritical
	case remaining <= t.Warning:
		return model.LevelWarning
	default:
		return model.LevelNormal
	}
}

// Classify uses DefaultThresholds.
func Classify(remaining float64) model.Level {
	return DefaultThresholds().Classify(remaining)
}
