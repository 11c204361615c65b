package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
)

const (
	filePrefix      = "claude-ctx-"
	stateFileSuffix = "-warned.json"
)

var (
	// ErrMalformedSnapshot is returned when a snapshot lacks a numeric remaining percentage.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrCorrupt is returned when a stored alert state cannot be parsed.
	ErrCorrupt = errors.New("corrupt alert state")
)

// FileStore reads snapshots and keeps alert states as JSON files, using the
// same names the statusline bridge and the hook have always shared.
type FileStore struct {
	snapshotDir string
	stateDir    string
}

// NewFileStore creates a file store. Empty directories default to os.TempDir().
func NewFileStore(snapshotDir, stateDir string) (*FileStore, error) {
	if snapshotDir == "" {
		snapshotDir = os.TempDir()
	}
	if stateDir == "" {
		stateDir = os.TempDir()
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &FileStore{snapshotDir: snapshotDir, stateDir: stateDir}, nil
}

// SnapshotPath returns where the bridge writes the snapshot for a session.
func (f *FileStore) SnapshotPath(sessionID string) string {
	return filepath.Join(f.snapshotDir, filePrefix+sessionID+".json")
}

// StatePath returns the alert-state file for a session.
func (f *FileStore) StatePath(sessionID string) string {
	return filepath.Join(f.stateDir, filePrefix+sessionID+stateFileSuffix)
}

type snapshotFile struct {
	SessionID           string   `json:"session_id,omitempty"`
	Timestamp           float64  `json:"timestamp"`
	UsedPct             *float64 `json:"used_pct"`
	RemainingPercentage *float64 `json:"remaining_percentage"`
}

func (f *FileStore) GetSnapshot(_ context.Context, sessionID string) (*model.UsageSnapshot, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.SnapshotPath(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return parseSnapshot(sessionID, data)
}

func parseSnapshot(sessionID string, data []byte) (*model.UsageSnapshot, error) {
	var raw snapshotFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if raw.RemainingPercentage == nil {
		return nil, fmt.Errorf("%w: remaining_percentage missing", ErrMalformedSnapshot)
	}

	snap := &model.UsageSnapshot{
		SessionID:        sessionID,
		RemainingPercent: *raw.RemainingPercentage,
	}
	if raw.UsedPct != nil {
		snap.UsedPercent = *raw.UsedPct
	} else {
		snap.UsedPercent = 100 - snap.RemainingPercent
	}
	if raw.Timestamp > 0 {
		snap.Timestamp = time.Unix(int64(raw.Timestamp), 0)
	}
	return snap, nil
}

// alertStateFile keeps the camelCase keys existing -warned.json files use.
type alertStateFile struct {
	CallsSinceWarn int     `json:"callsSinceWarn"`
	LastLevel      *string `json:"lastLevel"`
}

func (f *FileStore) GetAlertState(_ context.Context, sessionID string) (*model.AlertState, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.StatePath(sessionID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read alert state: %w", err)
	}

	return parseAlertState(data)
}

func parseAlertState(data []byte) (*model.AlertState, error) {
	var raw alertStateFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	state := &model.AlertState{CallsSinceWarn: max(raw.CallsSinceWarn, 0)}
	if raw.LastLevel != nil {
		state.LastLevel = model.Level(*raw.LastLevel)
	}
	return state, nil
}

func (f *FileStore) SaveAlertState(_ context.Context, sessionID string, state *model.AlertState) error {
	if err := ValidateSessionID(sessionID); err != nil {
		return err
	}

	raw := alertStateFile{CallsSinceWarn: state.CallsSinceWarn}
	if state.LastLevel != model.LevelNone {
		lvl := string(state.LastLevel)
		raw.LastLevel = &lvl
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal alert state: %w", err)
	}

	tmp, err := os.CreateTemp(f.stateDir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write alert state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close alert state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.StatePath(sessionID)); err != nil {
		return fmt.Errorf("replace alert state: %w", err)
	}
	return nil
}

// ListAlertStates skips files that do not parse.
func (f *FileStore) ListAlertStates(_ context.Context) ([]model.SessionAlertState, error) {
	matches, err := filepath.Glob(filepath.Join(f.stateDir, filePrefix+"*"+stateFileSuffix))
	if err != nil {
		return nil, fmt.Errorf("list alert states: %w", err)
	}

	var states []model.SessionAlertState
	for _, path := range matches {
		name := filepath.Base(path)
		sessionID := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), stateFileSuffix)
		if ValidateSessionID(sessionID) != nil {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		state, err := parseAlertState(data)
		if err != nil {
			continue
		}

		states = append(states, model.SessionAlertState{
			SessionID: sessionID,
			State:     *state,
			UpdatedAt: info.ModTime().UTC(),
		})
	}

	sort.Slice(states, func(i, j int) bool { return states[i].SessionID < states[j].SessionID })
	return states, nil
}

func (f *FileStore) Close() error { return nil }
