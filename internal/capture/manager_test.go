package capture

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/captr/internal/history"
)

// MockHistorySink implements history.Sink for testing. Events arrive from the
// monitor goroutine, so access is locked.
type MockHistorySink struct {
	mu     sync.Mutex
	events []history.Event
}

func (m *MockHistorySink) Send(_ context.Context, e history.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *MockHistorySink) Events() []history.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Event(nil), m.events...)
}

func (m *MockHistorySink) waitFor(t *testing.T, typ history.EventType) history.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		for _, e := range m.Events() {
			if e.Type == typ {
				return e
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("no %s event arrived", typ)
	return history.Event{}
}

func TestManagerLifecycle(t *testing.T) {
	requireUnix(t)
	mgr := NewManager()
	sink := &MockHistorySink{}
	mgr.SetHistorySinks(sink)

	res, err := mgr.Start(LaunchSpec{
		Path: "/bin/sh",
		Args: []string{"-c", "echo hello; sleep 0.3"},
		Name: "lifecycle",
	})
	require.NoError(t, err)
	assert.Equal(t, "lifecycle", res.Name)
	assert.Greater(t, res.PID, 0)

	start := sink.waitFor(t, history.EventStart)
	assert.Equal(t, res.PID, start.PID)
	assert.Equal(t, "lifecycle", start.Name)

	exit := sink.waitFor(t, history.EventExit)
	require.NotNil(t, exit.ExitCode)
	assert.Equal(t, 0, *exit.ExitCode)
	assert.Equal(t, 1, exit.StdoutLines)

	view, err := mgr.Capture(res.PID, 10)
	require.NoError(t, err)
	require.Len(t, view.Stdout, 1)
	assert.Equal(t, "hello", view.Stdout[0].Text)

	st, err := mgr.Status(res.PID)
	require.NoError(t, err)
	assert.False(t, st.Alive)

	// Stopping an exited process is an idempotent success.
	stop, err := mgr.Stop(res.PID)
	require.NoError(t, err)
	assert.True(t, stop.AlreadyCompleted)
	assert.Equal(t, 0, stop.ExitCode)

	assert.Len(t, mgr.List(), 1)
	assert.Equal(t, 1, mgr.Cleanup())
	assert.Empty(t, mgr.List())
}

func TestManagerStopRunningProcess(t *testing.T) {
	requireUnix(t)
	mgr := NewManager()
	mgr.SetGrace(time.Second)

	res, err := mgr.Start(LaunchSpec{Path: "/bin/sh", Args: []string{"-c", "sleep 10"}})
	require.NoError(t, err)

	stop, err := mgr.Stop(res.PID)
	require.NoError(t, err)
	assert.False(t, stop.AlreadyCompleted)
	assert.Equal(t, -1, stop.ExitCode)
}

func TestManagerRunBoundedUsesConfiguredCheckpoint(t *testing.T) {
	requireUnix(t)
	mgr := NewManager()
	mgr.SetCheckpoint(300 * time.Millisecond)
	mgr.SetGrace(300 * time.Millisecond)

	out, err := mgr.RunBounded(LaunchSpec{
		Path: "/bin/sh",
		Args: []string{"-c", "echo partial; sleep 10"},
	}, 300*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, OutcomePartialTimeout, out.Kind)
	require.Len(t, out.Stdout, 1)
	assert.Equal(t, "partial", out.Stdout[0].Text)
}

func TestManagerShutdownStopsEverything(t *testing.T) {
	requireUnix(t)
	mgr := NewManager()
	mgr.SetGrace(time.Second)

	var pids []int
	for i := 0; i < 2; i++ {
		res, err := mgr.Start(LaunchSpec{Path: "/bin/sh", Args: []string{"-c", "sleep 10"}})
		require.NoError(t, err)
		pids = append(pids, res.PID)
	}

	mgr.Shutdown()
	for _, pid := range pids {
		st, err := mgr.Status(pid)
		require.NoError(t, err, "records stay queryable after shutdown")
		assert.False(t, st.Alive)
	}
}

func TestManagerTrackedProcs(t *testing.T) {
	requireUnix(t)
	mgr := NewManager()
	mgr.SetGrace(time.Second)

	res, err := mgr.Start(LaunchSpec{Path: "/bin/sh", Args: []string{"-c", "sleep 10"}, Name: "tracked"})
	require.NoError(t, err)

	procs := mgr.TrackedProcs()
	require.Len(t, procs, 1)
	assert.Equal(t, res.PID, procs[0].PID)
	assert.Equal(t, "tracked", procs[0].Name)

	_, err = mgr.Stop(res.PID)
	require.NoError(t, err)
	assert.Empty(t, mgr.TrackedProcs())
}
