package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

var (
	// ErrNotFound is returned when no record exists for a session.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSessionID is returned for ids that are unsafe as storage keys.
	ErrInvalidSessionID = errors.New("invalid session id")
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateSessionID rejects ids that could escape a storage directory.
func ValidateSessionID(id string) error {
	if id == "" || id == "." || id == ".." || !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// SnapshotStore reads usage snapshots written by the statusline bridge.
type SnapshotStore interface {
	// GetSnapshot returns the latest snapshot for a session or ErrNotFound.
	GetSnapshot(ctx context.Context, sessionID string) (*model.UsageSnapshot, error)
}

// AlertStateStore persists the per-session debounce record.
type AlertStateStore interface {
	// GetAlertState returns the stored state or ErrNotFound.
	GetAlertState(ctx context.Context, sessionID string) (*model.AlertState, error)

	// SaveAlertState creates or replaces the state for a session.
	SaveAlertState(ctx context.Context, sessionID string, state *model.AlertState) error

	// ListAlertStates returns every stored state, ordered by session id.
	ListAlertStates(ctx context.Context) ([]model.SessionAlertState, error)

	// Close releases resources.
	Close() error
}
