package capture

import "fmt"

// NotFoundError is returned for any query or stop against a pid that was
// never registered or has already been cleaned up.
type NotFoundError struct {
	PID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no tracked process with pid %d", e.PID)
}

// DuplicateProcessError reports a registry insert for a pid that is still
// tracked. The kernel never hands out a live pid twice, so this indicates a
// record for an exited process was resurrected somewhere; treat it as a bug.
type DuplicateProcessError struct {
	PID int
}

func (e *DuplicateProcessError) Error() string {
	return fmt.Sprintf("pid %d is already tracked", e.PID)
}

// ProcessStillActiveError rejects removal of a record whose process has not
// exited or whose stream capture has not finished draining.
type ProcessStillActiveError struct {
	PID int
}

func (e *ProcessStillActiveError) Error() string {
	return fmt.Sprintf("process %d is still active", e.PID)
}

// LaunchError wraps a failure to validate or spawn a process. When it is
// returned nothing has been registered and no reader has started.
type LaunchError struct {
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TerminationError wraps a signal delivery failure while stopping a process.
// The process remains tracked; its state is indeterminate until the monitor
// observes the exit.
type TerminationError struct {
	PID int
	Err error
}

func (e *TerminationError) Error() string {
	return fmt.Sprintf("terminate pid %d: %v", e.PID, e.Err)
}

func (e *TerminationError) Unwrap() error { return e.Err }
