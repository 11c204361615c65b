package alerts

import (
	"context"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

// Alert mirrors a directive that was injected into an agent session.
type Alert struct {
	Level            model.Level `json:"level"`
	SessionID        string      `json:"session_id"`
	UsedPercent      float64     `json:"used_percent"`
	RemainingPercent float64     `json:"remaining_percent"`
	Escalated        bool        `json:"escalated"`
	Message          string      `json:"message"`
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
