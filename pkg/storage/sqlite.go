package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/context-guardian/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLite implements AlertStateStore using an SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates an SQLite database at the given path.
func NewSQLite(dbPath string) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Hooks for different sessions may write side by side; wait for the
	// other writer instead of failing with SQLITE_BUSY.
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		db.Close()
		return nil, fmt.Errorf("check journal mode: %w", err)
	}
	if mode != "wal" {
		db.Close()
		return nil, fmt.Errorf("journal mode is %q, want wal", mode)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) GetAlertState(ctx context.Context, sessionID string) (*model.AlertState, error) {
	var (
		state     model.AlertState
		lastLevel sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT calls_since_warn, last_level FROM alert_states WHERE session_id = ?`, sessionID,
	).Scan(&state.CallsSinceWarn, &lastLevel)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert state: %w", err)
	}
	state.LastLevel = model.Level(lastLevel.String)
	return &state, nil
}

func (s *SQLite) SaveAlertState(ctx context.Context, sessionID string, state *model.AlertState) error {
	var lastLevel sql.NullString
	if state.LastLevel != model.LevelNone {
		lastLevel = sql.NullString{String: string(state.LastLevel), Valid: true}
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alert_states (id, session_id, calls_since_warn, last_level, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   calls_since_warn = excluded.calls_since_warn,
		   last_level = excluded.last_level,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), sessionID, state.CallsSinceWarn, lastLevel, now, now,
	)
	if err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	return nil
}

func (s *SQLite) ListAlertStates(ctx context.Context) ([]model.SessionAlertState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, calls_since_warn, last_level, updated_at
		 FROM alert_states ORDER BY session_id`)
	if err != nil {
		return nil, fmt.Errorf("list alert states: %w", err)
	}
	defer rows.Close()

	var states []model.SessionAlertState
	for rows.Next() {
		var (
			st        model.SessionAlertState
			lastLevel sql.NullString
		)
		if err := rows.Scan(&st.SessionID, &st.State.CallsSinceWarn, &lastLevel, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan alert state row: %w", err)
		}
		st.State.LastLevel = model.Level(lastLevel.String)
		states = append(states, st)
	}
	return states, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
