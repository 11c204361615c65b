package model

import "time"

// Level is the severity of a context-usage reading.
type Level string

const (
	LevelNone      Level = ""          // No warning emitted yet
	LevelNormal    Level = "normal"    // Plenty of context left
	LevelWarning   Level = "warning"   // Wrap up current task
	LevelCritical  Level = "critical"  // Stop and save state
	LevelEmergency Level = "emergency" // Force stop and hand off
)

// Rank orders levels by urgency. Unknown levels rank with LevelNone.
func (l Level) Rank() int {
	switch l {
	case LevelNormal:
		return 1
	case LevelWarning:
		return 2
	case LevelCritical:
		return 3
	case LevelEmergency:
		return 4
	default:
		return 0
	}
}

// String returns "none" for LevelNone.
func (l Level) String() string {
	if l == LevelNone {
		return "none"
	}
	return string(l)
}

// UsageSnapshot is a point-in-time context measurement for a session,
// produced by the statusline bridge.
type UsageSnapshot struct {
	SessionID        string    `json:"session_id" yaml:"session_id"`
	Timestamp        time.Time `json:"timestamp" yaml:"timestamp"`
	UsedPercent      float64   `json:"used_percent" yaml:"used_percent"`
	RemainingPercent float64   `json:"remaining_percent" yaml:"remaining_percent"`
}

// Age returns how many whole seconds old the snapshot is at now.
func (s *UsageSnapshot) Age(now time.Time) time.Duration {
	return time.Duration(now.Unix()-s.Timestamp.Unix()) * time.Second
}

// AlertState is the per-session debounce record.
type AlertState struct {
	CallsSinceWarn int   `json:"calls_since_warn" yaml:"calls_since_warn"`
	LastLevel      Level `json:"last_level" yaml:"last_level"`
}

// SessionAlertState pairs an alert state with its session for listings.
type SessionAlertState struct {
	SessionID string     `json:"session_id" yaml:"session_id"`
	State     AlertState `json:"state" yaml:"state"`
	UpdatedAt time.Time  `json:"updated_at" yaml:"updated_at"`
}
