// Package monitor decides when an agent session must be told that its
// context window is running out.
//
// Each invocation reads the session's usage snapshot, classifies the
// remaining percentage, runs the debounce/escalation state machine against
// the persisted alert state and, when an emission is due, composes the
// directive that the hook injects into the conversation.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/context-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/context-guardian/pkg/model"
	"github.com/ogulcanaydogan/context-guardian/pkg/storage"
)

// Policy bundles the tunables of the monitor.
type Policy struct {
	Thresholds    Thresholds
	Debounce      Debounce
	StaleAfter    time.Duration
	Commands      Commands
	NotifyTimeout time.Duration
}

// DefaultPolicy returns the standard policy.
func DefaultPolicy() Policy {
	return Policy{
		Thresholds:    DefaultThresholds(),
		Debounce:      DefaultDebounce(),
		StaleAfter:    60 * time.Second,
		Commands:      DefaultCommands(),
		NotifyTimeout: 3 * time.Second,
	}
}

// Validate checks thresholds, debounce intervals and durations.
func (p Policy) Validate() error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if err := p.Debounce.Validate(); err != nil {
		return err
	}
	if p.StaleAfter <= 0 {
		return fmt.Errorf("stale_after must be positive, got %s", p.StaleAfter)
	}
	return nil
}

// Outcome is how an invocation ended.
type Outcome string

const (
	OutcomeSkipped    Outcome = "skipped"    // Nothing to monitor
	OutcomeSuppressed Outcome = "suppressed" // Debounced
	OutcomeEmitted    Outcome = "emitted"    // Directive produced
)

// Reasons attached to skipped results.
const (
	ReasonNoSession      = "no session id"
	ReasonInvalidSession = "invalid session id"
	ReasonNoSnapshot     = "no snapshot"
	ReasonStale          = "stale snapshot"
	ReasonNormal         = "below warning threshold"
	ReasonDebounced      = "debounced"
)

// Result describes one invocation.
type Result struct {
	Outcome  Outcome
	Reason   string
	Level    model.Level
	Snapshot *model.UsageSnapshot
	Decision *Decision
	Message  string
}

// Monitor runs the snapshot -> classify -> debounce -> compose pipeline.
type Monitor struct {
	snapshots storage.SnapshotStore
	states    storage.AlertStateStore
	policy    Policy
	composer  *Composer
	notifiers []alerts.Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a monitor.
func New(snapshots storage.SnapshotStore, states storage.AlertStateStore, policy Policy, notifiers []alerts.Notifier, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		snapshots: snapshots,
		states:    states,
		policy:    policy,
		composer:  NewComposer(policy.Commands),
		notifiers: notifiers,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock used for staleness checks.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Check evaluates one invocation for a session. Conditions that mean
// "nothing to do" are reported as skipped results, not errors.
func (m *Monitor) Check(ctx context.Context, sessionID string) (*Result, error) {
	if sessionID == "" {
		return skipped(ReasonNoSession), nil
	}
	if err := storage.ValidateSessionID(sessionID); err != nil {
		return skipped(ReasonInvalidSession), nil
	}

	snap, err := m.snapshots.GetSnapshot(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return skipped(ReasonNoSnapshot), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if !snap.Timestamp.IsZero() && snap.Age(m.now()) > m.policy.StaleAfter {
		res := skipped(ReasonStale)
		res.Snapshot = snap
		return res, nil
	}

	level := m.policy.Thresholds.Classify(snap.RemainingPercent)
	if level == model.LevelNormal {
		res := skipped(ReasonNormal)
		res.Level = level
		res.Snapshot = snap
		return res, nil
	}

	prior, err := m.states.GetAlertState(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Debug("alert state unreadable, starting fresh", "session", sessionID, "error", err)
		}
		prior = nil
	}

	decision := m.policy.Debounce.Decide(level, prior)
	if err := m.states.SaveAlertState(ctx, sessionID, &decision.State); err != nil {
		return nil, fmt.Errorf("save alert state: %w", err)
	}

	res := &Result{
		Level:    level,
		Snapshot: snap,
		Decision: &decision,
	}
	if !decision.Emit {
		res.Outcome = OutcomeSuppressed
		res.Reason = ReasonDebounced
		return res, nil
	}

	res.Outcome = OutcomeEmitted
	res.Message = m.composer.Compose(level, snap.UsedPercent, snap.RemainingPercent)

	m.logger.Info("context alert emitted",
		"session", sessionID,
		"level", level,
		"remaining_pct", snap.RemainingPercent,
		"escalated", decision.Escalated,
		"first", decision.First,
	)

	m.notify(ctx, alerts.Alert{
		Level:            level,
		SessionID:        sessionID,
		UsedPercent:      snap.UsedPercent,
		RemainingPercent: snap.RemainingPercent,
		Escalated:        decision.Escalated,
		Message:          res.Message,
	})

	return res, nil
}

// notify delivers alert to every notifier. Failures are logged only.
func (m *Monitor) notify(ctx context.Context, alert alerts.Alert) {
	for _, notifier := range m.notifiers {
		sendCtx := ctx
		cancel := func() {}
		if m.policy.NotifyTimeout > 0 {
			sendCtx, cancel = context.WithTimeout(ctx, m.policy.NotifyTimeout)
		}
		if err := notifier.Send(sendCtx, alert); err != nil {
			m.logger.Error("send alert failed",
				"notifier", notifier.Name(),
				"session", alert.SessionID,
				"error", err,
			)
		}
		cancel()
	}
}

func skipped(reason string) *Result {
	return &Result{Outcome: OutcomeSkipped, Reason: reason}
}
