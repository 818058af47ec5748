package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/loykin/captr/internal/history"
	"github.com/loykin/captr/internal/logger"
	"github.com/loykin/captr/internal/metrics"
)

// Manager ties the registry, launcher, termination sequencer and checkpoint
// controller together behind the API used by the HTTP server, the CLI and
// the embedding façade. Construct one per hosting program.
type Manager struct {
	reg      *Registry
	launcher *Launcher
	seq      *Sequencer
	ctrl     *Controller

	mu    sync.Mutex
	sinks []history.Sink
}

func NewManager() *Manager {
	reg := NewRegistry()
	l := NewLauncher(reg)
	seq := &Sequencer{}
	m := &Manager{
		reg:      reg,
		launcher: l,
		seq:      seq,
		ctrl:     NewController(l, seq),
	}
	l.SetExitHook(m.recordExit)
	return m
}

// SetMirror enables per-process output mirror files.
func (m *Manager) SetMirror(cfg logger.MirrorConfig) { m.launcher.SetMirror(cfg) }

// SetCheckpoint overrides the bounded-run checkpoint interval.
func (m *Manager) SetCheckpoint(d time.Duration) { m.ctrl.Checkpoint = d }

// SetGrace overrides the graceful-stop wait before a forced kill.
func (m *Manager) SetGrace(d time.Duration) { m.seq.Grace = d }

// SetHistorySinks installs lifecycle-event sinks.
func (m *Manager) SetHistorySinks(sinks ...history.Sink) {
	m.mu.Lock()
	m.sinks = sinks
	m.mu.Unlock()
}

// StartResult echoes what was launched, as the start operation reports it.
type StartResult struct {
	Name    string   `json:"name"`
	PID     int      `json:"pid"`
	Command []string `json:"command"`
	WorkDir string   `json:"work_dir"`
}

// Start launches a background process with both streams captured.
func (m *Manager) Start(spec LaunchSpec) (StartResult, error) {
	rec, err := m.launcher.Launch(spec)
	if err != nil {
		return StartResult{}, err
	}
	m.emit(history.Event{
		Type:       history.EventStart,
		OccurredAt: time.Now(),
		PID:        rec.PID(),
		Name:       rec.Name(),
		Command:    strings.Join(rec.Command(), " "),
		StartedAt:  rec.StartedAt(),
	})
	return StartResult{
		Name:    rec.Name(),
		PID:     rec.PID(),
		Command: rec.Command(),
		WorkDir: rec.WorkDir(),
	}, nil
}

// Capture returns current liveness and the buffer tails for pid.
func (m *Manager) Capture(pid, maxLines int) (CaptureView, error) {
	return m.reg.Capture(pid, maxLines)
}

// StopResult reports the outcome of a stop request.
type StopResult struct {
	PID              int    `json:"pid"`
	Name             string `json:"name"`
	ExitCode         int    `json:"exit_code"`
	AlreadyCompleted bool   `json:"already_completed"`
}

// Stop terminates pid with graceful-then-forced escalation. Stopping an
// already-exited process is an idempotent success.
func (m *Manager) Stop(pid int) (StopResult, error) {
	rec, err := m.reg.Get(pid)
	if err != nil {
		return StopResult{}, err
	}
	code, already, err := m.seq.Stop(rec)
	if err != nil {
		return StopResult{}, err
	}
	return StopResult{PID: pid, Name: rec.Name(), ExitCode: code, AlreadyCompleted: already}, nil
}

// List returns one summary per tracked process.
func (m *Manager) List() []Summary { return m.reg.Summaries() }

// Status returns the full detail view for pid.
func (m *Manager) Status(pid int) (Status, error) { return m.reg.Status(pid) }

// RunBounded launches spec in the foreground sense: it blocks until the
// process finishes or the checkpoint interval elapses, then reports a tagged
// Outcome (see result.go).
func (m *Manager) RunBounded(spec LaunchSpec, timeout time.Duration) (Outcome, error) {
	return m.ctrl.Run(spec, timeout)
}

// Cleanup removes records whose process exited and whose capture finished,
// returning how many were dropped.
func (m *Manager) Cleanup() int {
	n := m.reg.CleanupCompleted()
	metrics.SetTracked(m.reg.Len())
	if n > 0 {
		slog.Info("cleaned up completed processes", "count", n)
	}
	return n
}

// TrackedProcs lists live pids for the metrics sampler.
func (m *Manager) TrackedProcs() []metrics.TrackedProc {
	recs := m.reg.List()
	out := make([]metrics.TrackedProc, 0, len(recs))
	for _, r := range recs {
		if r.Alive() {
			out = append(out, metrics.TrackedProc{PID: r.PID(), Name: r.Name()})
		}
	}
	return out
}

// Shutdown stops every live tracked process. Records stay queryable until
// cleaned up; in-memory state is lost when the hosting program exits.
func (m *Manager) Shutdown() {
	for _, rec := range m.reg.List() {
		if _, _, err := m.seq.Stop(rec); err != nil {
			slog.Warn("failed to stop process during shutdown", "pid", rec.PID(), "error", err)
		}
	}
}

// recordExit runs on the monitor goroutine after the exit code is recorded.
func (m *Manager) recordExit(rec *Record) {
	metrics.SetTracked(m.reg.Len())
	st := rec.Snapshot()
	m.emit(history.Event{
		Type:        history.EventExit,
		OccurredAt:  time.Now(),
		PID:         st.PID,
		Name:        st.Name,
		Command:     strings.Join(st.Command, " "),
		StartedAt:   st.StartedAt,
		ExitCode:    st.ExitCode,
		StdoutLines: st.StdoutLines,
		StderrLines: st.StderrLines,
		CaptureErr:  st.CaptureErr,
	})
}

func (m *Manager) emit(e history.Event) {
	m.mu.Lock()
	sinks := m.sinks
	m.mu.Unlock()
	if len(sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range sinks {
		if err := s.Send(ctx, e); err != nil {
			slog.Warn("history sink send failed", "event", string(e.Type), "pid", e.PID, "error", err)
		}
	}
}
