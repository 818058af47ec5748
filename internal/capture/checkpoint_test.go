package capture

import (
	"errors"
	"testing"
	"time"
)

func newTestController(t *testing.T) (*Controller, *Registry) {
	t.Helper()
	reg := NewRegistry()
	l := NewLauncher(reg)
	seq := &Sequencer{Grace: 300 * time.Millisecond}
	c := NewController(l, seq)
	c.Checkpoint = 500 * time.Millisecond
	return c, reg
}

func TestRunCompletedBeforeCheckpoint(t *testing.T) {
	requireUnix(t)
	c, _ := newTestController(t)
	out, err := c.Run(shSpec("echo done"), 10*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Kind != OutcomeCompleted {
		t.Fatalf("kind = %s, want completed", out.Kind)
	}
	if out.ExitCode == nil || *out.ExitCode != 0 {
		t.Fatalf("exit code = %v, want 0", out.ExitCode)
	}
	if len(out.Stdout) != 1 || out.Stdout[0].Text != "done" {
		t.Fatalf("stdout = %+v", out.Stdout)
	}
	if out.Kind.Partial() {
		t.Fatalf("completed outcome marked partial")
	}
}

func TestRunFailedBeforeCheckpoint(t *testing.T) {
	requireUnix(t)
	c, _ := newTestController(t)
	out, err := c.Run(shSpec("echo oops 1>&2; exit 2"), 10*time.Second)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Kind != OutcomeFailed {
		t.Fatalf("kind = %s, want failed", out.Kind)
	}
	if out.ExitCode == nil || *out.ExitCode != 2 {
		t.Fatalf("exit code = %v, want 2", out.ExitCode)
	}
	if len(out.Stderr) != 1 || out.Stderr[0].Text != "oops" {
		t.Fatalf("stderr = %+v", out.Stderr)
	}
}

func TestRunTimeoutTerminatesWithPartialOutput(t *testing.T) {
	requireUnix(t)
	c, reg := newTestController(t)
	out, err := c.Run(shSpec("echo started; sleep 10; echo never"), c.Checkpoint)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Kind != OutcomePartialTimeout {
		t.Fatalf("kind = %s, want timeout_partial", out.Kind)
	}
	if len(out.Stdout) != 1 || out.Stdout[0].Text != "started" {
		t.Fatalf("partial stdout = %+v", out.Stdout)
	}
	if !out.Kind.Partial() {
		t.Fatalf("timeout outcome not marked partial")
	}
	rec, err := reg.Get(out.PID)
	if err != nil {
		t.Fatalf("terminated run dropped from registry: %v", err)
	}
	if rec.Alive() {
		t.Fatalf("process alive after timeout termination")
	}
}

func TestRunPastCheckpointKeepsProcessRunning(t *testing.T) {
	requireUnix(t)
	c, reg := newTestController(t)
	out, err := c.Run(shSpec("echo started; sleep 10"), time.Minute)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Kind != OutcomeStillRunning {
		t.Fatalf("kind = %s, want still_running_partial", out.Kind)
	}
	if out.ExitCode != nil {
		t.Fatalf("still-running outcome carries exit code %d", *out.ExitCode)
	}
	if len(out.Stdout) != 1 || out.Stdout[0].Text != "started" {
		t.Fatalf("partial stdout = %+v", out.Stdout)
	}

	rec, err := reg.Get(out.PID)
	if err != nil {
		t.Fatalf("running process dropped from registry: %v", err)
	}
	if !rec.Alive() {
		t.Fatalf("process should still be running after the checkpoint")
	}
	seq := &Sequencer{Grace: 300 * time.Millisecond}
	if _, _, err := seq.Stop(rec); err != nil {
		t.Fatalf("cleanup stop: %v", err)
	}
}

func TestRunPropagatesLaunchError(t *testing.T) {
	c, _ := newTestController(t)
	_, err := c.Run(LaunchSpec{Path: "/no/such/binary"}, time.Second)
	var le *LaunchError
	if !errors.As(err, &le) {
		t.Fatalf("want LaunchError, got %v", err)
	}
}
