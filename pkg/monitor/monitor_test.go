package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ogulcanaydogan/context-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/context-guardian/pkg/model"
	"github.com/ogulcanaydogan/context-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/context-guardian/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Unix(1_700_000_000, 0)

// memStore is an in-memory snapshot and alert-state store that counts calls.
type memStore struct {
	snapshots map[string]*model.UsageSnapshot
	states    map[string]model.AlertState
	getErr    error
	saveErr   error
	stateOps  int
}

func newMemStore() *memStore {
	return &memStore{
		snapshots: map[string]*model.UsageSnapshot{},
		states:    map[string]model.AlertState{},
	}
}

func (s *memStore) GetSnapshot(_ context.Context, id string) (*model.UsageSnapshot, error) {
	snap, ok := s.snapshots[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *snap
	return &cp, nil
}

func (s *memStore) GetAlertState(_ context.Context, id string) (*model.AlertState, error) {
	s.stateOps++
	if s.getErr != nil {
		return nil, s.getErr
	}
	st, ok := s.states[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &st, nil
}

func (s *memStore) SaveAlertState(_ context.Context, id string, st *model.AlertState) error {
	s.stateOps++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.states[id] = *st
	return nil
}

func (s *memStore) ListAlertStates(context.Context) ([]model.SessionAlertState, error) {
	return nil, nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) setRemaining(id string, remaining float64, age time.Duration) {
	s.snapshots[id] = &model.UsageSnapshot{
		SessionID:        id,
		Timestamp:        testNow.Add(-age),
		UsedPercent:      100 - remaining,
		RemainingPercent: remaining,
	}
}

func newTestMonitor(t *testing.T, store *memStore, notifiers ...alerts.Notifier) *monitor.Monitor {
	t.Helper()
	return monitor.New(store, store, monitor.DefaultPolicy(), notifiers, nil).
		WithClock(func() time.Time { return testNow })
}

func TestCheck_NoSession(t *testing.T) {
	store := newMemStore()
	res, err := newTestMonitor(t, store).Check(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeSkipped, res.Outcome)
	assert.Equal(t, monitor.ReasonNoSession, res.Reason)
}

func TestCheck_InvalidSession(t *testing.T) {
	store := newMemStore()
	res, err := newTestMonitor(t, store).Check(context.Background(), "../../etc")
	require.NoError(t, err)
	assert.Equal(t, monitor.ReasonInvalidSession, res.Reason)
}

func TestCheck_NoSnapshot(t *testing.T) {
	store := newMemStore()
	res, err := newTestMonitor(t, store).Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeSkipped, res.Outcome)
	assert.Equal(t, monitor.ReasonNoSnapshot, res.Reason)
	assert.Zero(t, store.stateOps)
}

func TestCheck_Staleness(t *testing.T) {
	tests := []struct {
		age     time.Duration
		outcome monitor.Outcome
	}{
		{59 * time.Second, monitor.OutcomeEmitted},
		{60 * time.Second, monitor.OutcomeEmitted},
		{61 * time.Second, monitor.OutcomeSkipped},
		{time.Hour, monitor.OutcomeSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.age.String(), func(t *testing.T) {
			store := newMemStore()
			store.setRemaining("abc", 30, tt.age)

			res, err := newTestMonitor(t, store).Check(context.Background(), "abc")
			require.NoError(t, err)
			assert.Equal(t, tt.outcome, res.Outcome)
			if tt.outcome == monitor.OutcomeSkipped {
				assert.Equal(t, monitor.ReasonStale, res.Reason)
				assert.Zero(t, store.stateOps)
			}
		})
	}
}

func TestCheck_ZeroTimestampIsLive(t *testing.T) {
	store := newMemStore()
	store.snapshots["abc"] = &model.UsageSnapshot{SessionID: "abc", UsedPercent: 70, RemainingPercent: 30}

	res, err := newTestMonitor(t, store).Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
}

func TestCheck_NormalTouchesNoState(t *testing.T) {
	for _, remaining := range []float64{35.5, 40, 80, 100} {
		t.Run(fmt.Sprint(remaining), func(t *testing.T) {
			store := newMemStore()
			store.setRemaining("abc", remaining, 0)

			res, err := newTestMonitor(t, store).Check(context.Background(), "abc")
			require.NoError(t, err)
			assert.Equal(t, monitor.OutcomeSkipped, res.Outcome)
			assert.Equal(t, model.LevelNormal, res.Level)
			assert.Zero(t, store.stateOps)
			assert.Empty(t, store.states)
		})
	}
}

func TestCheck_Scenario(t *testing.T) {
	store := newMemStore()
	m := newTestMonitor(t, store)
	ctx := context.Background()

	store.setRemaining("abc", 40, 0)
	res, err := m.Check(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeSkipped, res.Outcome)

	store.setRemaining("abc", 30, 0)
	res, err = m.Check(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.Equal(t, model.LevelWarning, res.Level)
	assert.True(t, res.Decision.First)
	assert.Contains(t, res.Message, "CONTEXT MONITOR WARNING: Usage at 70%. Remaining: 30%.")
	assert.Equal(t, model.AlertState{CallsSinceWarn: 0, LastLevel: model.LevelWarning}, store.states["abc"])

	for want := 1; want <= 4; want++ {
		res, err = m.Check(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, monitor.OutcomeSuppressed, res.Outcome)
		assert.Empty(t, res.Message)
		assert.Equal(t, model.AlertState{CallsSinceWarn: want, LastLevel: model.LevelWarning}, store.states["abc"])
	}

	res, err = m.Check(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.Equal(t, 0, store.states["abc"].CallsSinceWarn)

	store.setRemaining("abc", 20, 0)
	res, err = m.Check(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.True(t, res.Decision.Escalated)
	assert.Contains(t, res.Message, "CONTEXT MONITOR CRITICAL")
	assert.Equal(t, model.AlertState{CallsSinceWarn: 0, LastLevel: model.LevelCritical}, store.states["abc"])
}

func TestCheck_SessionsAreIndependent(t *testing.T) {
	store := newMemStore()
	m := newTestMonitor(t, store)
	ctx := context.Background()
	store.setRemaining("a", 30, 0)
	store.setRemaining("b", 30, 0)

	res, err := m.Check(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)

	res, err = m.Check(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
}

func TestCheck_UnreadableStateStartsFresh(t *testing.T) {
	store := newMemStore()
	store.setRemaining("abc", 30, 0)
	store.states["abc"] = model.AlertState{CallsSinceWarn: 1, LastLevel: model.LevelWarning}
	store.getErr = fmt.Errorf("%w: bad json", storage.ErrCorrupt)

	res, err := newTestMonitor(t, store).Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.True(t, res.Decision.First)
}

func TestCheck_SaveFailureIsError(t *testing.T) {
	store := newMemStore()
	store.setRemaining("abc", 30, 0)
	store.saveErr = errors.New("disk full")

	res, err := newTestMonitor(t, store).Check(context.Background(), "abc")
	assert.Error(t, err)
	assert.Nil(t, res)
}

func TestCheck_Notifies(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	store := newMemStore()
	store.setRemaining("abc", 30, 0)
	m := newTestMonitor(t, store, alerts.NewWebhookNotifier(server.URL, ""))

	_, err := m.Check(context.Background(), "abc")
	require.NoError(t, err)
	_, err = m.Check(context.Background(), "abc")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
}

func TestCheck_NotifierFailureDoesNotBlockEmission(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	store := newMemStore()
	store.setRemaining("abc", 10, 0)
	m := newTestMonitor(t, store, alerts.NewWebhookNotifier(server.URL, ""))

	res, err := m.Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.Equal(t, model.LevelEmergency, res.Level)
}

func TestCheck_FileStore(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir, dir)
	require.NoError(t, err)

	snap := fmt.Sprintf(`{"session_id":"abc","timestamp":%d,"used_pct":75,"remaining_percentage":25}`, testNow.Unix()-5)
	require.NoError(t, os.WriteFile(fs.SnapshotPath("abc"), []byte(snap), 0o644))

	m := monitor.New(fs, fs, monitor.DefaultPolicy(), nil, nil).WithClock(func() time.Time { return testNow })

	res, err := m.Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.Equal(t, model.LevelCritical, res.Level)

	data, err := os.ReadFile(fs.StatePath("abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"callsSinceWarn":0,"lastLevel":"critical"}`, string(data))

	res, err = m.Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeSuppressed, res.Outcome)
}

func TestCheck_CorruptStateFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir, dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(fs.SnapshotPath("abc"), []byte(`{"remaining_percentage":30,"used_pct":70}`), 0o644))
	require.NoError(t, os.WriteFile(fs.StatePath("abc"), []byte(`{garbage`), 0o644))

	m := monitor.New(fs, fs, monitor.DefaultPolicy(), nil, nil)
	res, err := m.Check(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, monitor.OutcomeEmitted, res.Outcome)
	assert.True(t, res.Decision.First)
}

func TestCheck_MalformedSnapshot(t *testing.T) {
	dir := t.TempDir()
	fs, err := storage.NewFileStore(dir, dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(fs.SnapshotPath("abc"), []byte(`{"used_pct":70}`), 0o644))

	_, err = monitor.New(fs, fs, monitor.DefaultPolicy(), nil, nil).Check(context.Background(), "abc")
	assert.True(t, errors.Is(err, storage.ErrMalformedSnapshot))
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, monitor.DefaultPolicy().Validate())

	p := monitor.DefaultPolicy()
	p.StaleAfter = 0
	assert.Error(t, p.Validate())

	p = monitor.DefaultPolicy()
	p.Debounce.Warning = 0
	assert.Error(t, p.Validate())
}
