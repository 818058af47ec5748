package capture

import (
	"os/exec"
	"sync"
	"time"
)

// Line is one captured output line together with the time it was read off
// the pipe.
type Line struct {
	At   time.Time `json:"at"`
	Text string    `json:"text"`
}

type streamKind string

const (
	streamStdout streamKind = "stdout"
	streamStderr streamKind = "stderr"
)

// Record holds the mutable state of one launched process. All fields are
// guarded by mu and locking stays inside methods; readers always get copies
// so no caller can observe a torn line or hold the lock across a suspension.
type Record struct {
	mu sync.Mutex

	pid     int
	name    string
	command []string
	workDir string
	env     []string

	startedAt    time.Time
	stdout       []Line
	stderr       []Line
	lastOutputAt time.Time

	captureDone bool
	captureErr  string
	exitCode    *int
	completedAt time.Time

	cmd         *exec.Cmd
	readersLeft int
	captureCh   chan struct{} // closed when both stream readers have stopped
	waitDone    chan struct{} // closed by the monitor once the exit code is recorded
}

func newRecord(cmd *exec.Cmd, name string, command []string, workDir string, env []string) *Record {
	now := time.Now()
	return &Record{
		pid:          cmd.Process.Pid,
		name:         name,
		command:      command,
		workDir:      workDir,
		env:          env,
		startedAt:    now,
		lastOutputAt: now,
		cmd:          cmd,
		readersLeft:  2,
		captureCh:    make(chan struct{}),
		waitDone:     make(chan struct{}),
	}
}

func (r *Record) PID() int   { r.mu.Lock(); defer r.mu.Unlock(); return r.pid }
func (r *Record) Name() string { r.mu.Lock(); defer r.mu.Unlock(); return r.name }

func (r *Record) Command() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.command...)
}

func (r *Record) WorkDir() string { r.mu.Lock(); defer r.mu.Unlock(); return r.workDir }

func (r *Record) StartedAt() time.Time { r.mu.Lock(); defer r.mu.Unlock(); return r.startedAt }

// ExitCode returns the recorded exit code, if the monitor has observed the
// exit yet.
func (r *Record) ExitCode() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exitCode == nil {
		return 0, false
	}
	return *r.exitCode, true
}

func (r *Record) appendLine(stream streamKind, l Line) {
	r.mu.Lock()
	switch stream {
	case streamStderr:
		r.stderr = append(r.stderr, l)
	default:
		r.stdout = append(r.stdout, l)
	}
	r.lastOutputAt = l.At
	r.mu.Unlock()
}

// setCaptureError records the first stream read failure; later failures on
// the other stream do not overwrite it.
func (r *Record) setCaptureError(msg string) {
	r.mu.Lock()
	if r.captureErr == "" {
		r.captureErr = msg
	}
	r.mu.Unlock()
}

// readerFinished is called once per stream reader. The last one to finish
// marks the capture complete and unblocks the monitor.
func (r *Record) readerFinished() {
	r.mu.Lock()
	r.readersLeft--
	last := r.readersLeft == 0 && !r.captureDone
	if last {
		r.captureDone = true
	}
	ch := r.captureCh
	r.mu.Unlock()
	if last {
		close(ch)
	}
}

// markExited records the exit code exactly once and releases waitDone
// waiters. Only the monitor goroutine calls it.
func (r *Record) markExited(code int) {
	r.mu.Lock()
	if r.exitCode == nil {
		c := code
		r.exitCode = &c
		r.completedAt = time.Now()
		close(r.waitDone)
	}
	r.mu.Unlock()
}

func (r *Record) captureDoneChan() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captureCh
}

func (r *Record) waitDoneChan() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.waitDone
}

// Alive probes liveness at call time. It never consults a cached flag: the
// waitDone channel covers exits the monitor has reaped, and the platform
// probe covers exits it has not seen yet (including Linux zombies).
func (r *Record) Alive() bool {
	r.mu.Lock()
	wd := r.waitDone
	pid := r.pid
	r.mu.Unlock()
	select {
	case <-wd:
		return false
	default:
	}
	return pidAlive(pid)
}

// TailStdout returns copies of the last n stdout lines, or all of them when
// n <= 0. Truncation happens only here, never in the buffer itself.
func (r *Record) TailStdout(n int) []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tail(r.stdout, n)
}

// TailStderr is the stderr counterpart of TailStdout.
func (r *Record) TailStderr(n int) []Line {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tail(r.stderr, n)
}

func tail(lines []Line, n int) []Line {
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return append([]Line(nil), lines...)
}

// Status is a point-in-time copy of a Record for query operations.
type Status struct {
	PID          int       `json:"pid"`
	Name         string    `json:"name"`
	Command      []string  `json:"command"`
	WorkDir      string    `json:"work_dir"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitzero"`
	LastOutputAt time.Time `json:"last_output_at"`
	StdoutLines  int       `json:"stdout_lines"`
	StderrLines  int       `json:"stderr_lines"`
	CaptureDone  bool      `json:"capture_done"`
	CaptureErr   string    `json:"capture_error,omitempty"`
	ExitCode     *int      `json:"exit_code,omitempty"`
	Alive        bool      `json:"alive"`
}

// Snapshot copies the current state and probes liveness.
func (r *Record) Snapshot() Status {
	alive := r.Alive()
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		PID:          r.pid,
		Name:         r.name,
		Command:      append([]string(nil), r.command...),
		WorkDir:      r.workDir,
		StartedAt:    r.startedAt,
		CompletedAt:  r.completedAt,
		LastOutputAt: r.lastOutputAt,
		StdoutLines:  len(r.stdout),
		StderrLines:  len(r.stderr),
		CaptureDone:  r.captureDone,
		CaptureErr:   r.captureErr,
		Alive:        alive,
	}
	if r.exitCode != nil {
		c := *r.exitCode
		st.ExitCode = &c
	}
	return st
}

// Runtime reports how long the process ran, or has been running.
func (s Status) Runtime() time.Duration {
	if !s.CompletedAt.IsZero() {
		return s.CompletedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// IdleFor reports the time since the last captured line.
func (s Status) IdleFor() time.Duration {
	return time.Since(s.LastOutputAt)
}
