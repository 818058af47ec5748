package capture

import (
	"log/slog"
	"time"

	"github.com/loykin/captr/internal/metrics"
)

// DefaultGracefulTimeout is how long Stop waits for a voluntary exit after
// the graceful signal before escalating to a kill.
const DefaultGracefulTimeout = 5 * time.Second

// Sequencer stops a tracked process with escalating force: graceful signal,
// bounded wait, forced kill, unconditional wait. It never cancels the stream
// readers; they observe end-of-stream on their own and the monitor records
// the exit code.
type Sequencer struct {
	Grace time.Duration // zero means DefaultGracefulTimeout
}

// Stop terminates the process behind rec. When the process has already
// exited it is a no-op returning the recorded exit code, so repeated calls
// are idempotent. The boolean reports that no-op case.
func (s *Sequencer) Stop(rec *Record) (int, bool, error) {
	if code, ok := rec.ExitCode(); ok {
		return code, true, nil
	}

	grace := s.Grace
	if grace <= 0 {
		grace = DefaultGracefulTimeout
	}
	pid := rec.PID()

	if !rec.Alive() {
		// Exited on its own but not reaped yet; the monitor records the
		// code as soon as both streams drain.
		<-rec.waitDoneChan()
		code, _ := rec.ExitCode()
		return code, true, nil
	}

	if err := termProcess(pid); err != nil {
		return 0, false, &TerminationError{PID: pid, Err: err}
	}
	select {
	case <-rec.waitDoneChan():
	case <-time.After(grace):
		if err := killProcess(pid); err != nil {
			return 0, false, &TerminationError{PID: pid, Err: err}
		}
		<-rec.waitDoneChan()
	}

	code, _ := rec.ExitCode()
	slog.Info("process stopped", "name", rec.Name(), "pid", pid, "exit_code", code)
	metrics.IncStop()
	return code, false, nil
}
