package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
	"github.com/ogulcanaydogan/context-guardian/pkg/storage"
)

// Status is a read-only view of one session.
type Status struct {
	SessionID  string               `json:"session_id" yaml:"session_id"`
	Snapshot   *model.UsageSnapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Level      model.Level          `json:"level,omitempty" yaml:"level,omitempty"`
	Stale      bool                 `json:"stale" yaml:"stale"`
	AlertState *model.AlertState    `json:"alert_state,omitempty" yaml:"alert_state,omitempty"`
}

// Inspect reports what the monitor currently knows about a session without
// changing anything. It returns storage.ErrNotFound when the session has
// neither a snapshot nor an alert state.
func (m *Monitor) Inspect(ctx context.Context, sessionID string) (*Status, error) {
	if err := storage.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	status := &Status{SessionID: sessionID}

	snap, err := m.snapshots.GetSnapshot(ctx, sessionID)
	switch {
	case err == nil:
		status.Snapshot = snap
		status.Level = m.policy.Thresholds.Classify(snap.RemainingPercent)
		status.Stale = !snap.Timestamp.IsZero() && snap.Age(m.now()) > m.policy.StaleAfter
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrMalformedSnapshot):
		m.logger.Warn("snapshot unreadable", "session", sessionID, "error", err)
	default:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	state, err := m.states.GetAlertState(ctx, sessionID)
	switch {
	case err == nil:
		status.AlertState = state
	case errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrCorrupt):
		m.logger.Warn("alert state unreadable", "session", sessionID, "error", err)
	default:
		return nil, fmt.Errorf("read alert state: %w", err)
	}

	if status.Snapshot == nil && status.AlertState == nil {
		return nil, storage.ErrNotFound
	}
	return status, nil
}

// Sessions lists every stored alert state.
func (m *Monitor) Sessions(ctx context.Context) ([]model.SessionAlertState, error) {
	states, err := m.states.ListAlertStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alert states: %w", err)
	}
	return states, nil
}
