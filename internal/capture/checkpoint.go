package capture

import (
	"log/slog"
	"time"

	"github.com/loykin/captr/internal/metrics"
)

// DefaultCheckpointInterval is the elapsed-time point at which a bounded run
// reports partial progress instead of blocking further.
const DefaultCheckpointInterval = 30 * time.Second

// Controller implements bounded one-shot execution: run to completion, or
// once the checkpoint interval elapses return whatever output accumulated.
// It is policy only; the launcher's background readers do the capturing, so
// "collect partial output" is a plain buffer snapshot and needs no
// platform-specific drain.
type Controller struct {
	launcher   *Launcher
	seq        *Sequencer
	Checkpoint time.Duration // zero means DefaultCheckpointInterval
}

func NewController(l *Launcher, s *Sequencer) *Controller {
	return &Controller{launcher: l, seq: s}
}

// Run launches spec and waits until the process exits or the checkpoint
// interval elapses, whichever comes first.
//
// Completed before the checkpoint: Outcome{Completed|Failed} with the full
// output and exit code. Still alive at the checkpoint: if timeout is at or
// below the checkpoint interval the process is terminated and the partial
// output comes back as OutcomePartialTimeout; otherwise it keeps running,
// stays registered for later queries, and the partial output comes back as
// OutcomeStillRunning.
func (c *Controller) Run(spec LaunchSpec, timeout time.Duration) (Outcome, error) {
	rec, err := c.launcher.Launch(spec)
	if err != nil {
		return Outcome{}, err
	}

	interval := c.Checkpoint
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()
	select {
	case <-rec.waitDoneChan():
		// The monitor records the exit code only after both readers hit
		// end-of-stream, so the buffers are final here.
		return c.finalOutcome(rec), nil
	case <-timer.C:
	}

	// Checkpoint reached with the process still alive: snapshot the buffers
	// as they are right now.
	stdout := rec.TailStdout(0)
	stderr := rec.TailStderr(0)

	if timeout <= interval {
		code, _, err := c.seq.Stop(rec)
		if err != nil {
			return Outcome{}, err
		}
		slog.Info("bounded run timed out", "name", rec.Name(), "pid", rec.PID(), "timeout", timeout)
		metrics.IncBoundedRun(string(OutcomePartialTimeout))
		return Outcome{
			Kind:     OutcomePartialTimeout,
			PID:      rec.PID(),
			Name:     rec.Name(),
			ExitCode: &code,
			Stdout:   stdout,
			Stderr:   stderr,
		}, nil
	}

	slog.Info("bounded run still running at checkpoint", "name", rec.Name(), "pid", rec.PID())
	metrics.IncBoundedRun(string(OutcomeStillRunning))
	return Outcome{
		Kind:   OutcomeStillRunning,
		PID:    rec.PID(),
		Name:   rec.Name(),
		Stdout: stdout,
		Stderr: stderr,
	}, nil
}

func (c *Controller) finalOutcome(rec *Record) Outcome {
	code, _ := rec.ExitCode()
	kind := OutcomeCompleted
	if code != 0 {
		kind = OutcomeFailed
	}
	metrics.IncBoundedRun(string(kind))
	return Outcome{
		Kind:     kind,
		PID:      rec.PID(),
		Name:     rec.Name(),
		ExitCode: &code,
		Stdout:   rec.TailStdout(0),
		Stderr:   rec.TailStderr(0),
	}
}
