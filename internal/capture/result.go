package capture

// OutcomeKind tags the result of a bounded run. Callers branch on the kind;
// no field doubles as an implicit discriminator.
type OutcomeKind string

const (
	// OutcomeCompleted: the process finished with exit code 0 before the
	// checkpoint; output is final.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeFailed: the process finished with a non-zero exit code before
	// the checkpoint; output is final.
	OutcomeFailed OutcomeKind = "failed"
	// OutcomePartialTimeout: the process outlived the checkpoint with a
	// timeout at or below it; it was terminated and the output is partial.
	OutcomePartialTimeout OutcomeKind = "timeout_partial"
	// OutcomeStillRunning: the process outlived the checkpoint with a
	// timeout beyond it; it keeps running and stays registered, and the
	// output is partial.
	OutcomeStillRunning OutcomeKind = "still_running_partial"
)

// Partial reports whether output attached to this kind may still grow.
func (k OutcomeKind) Partial() bool {
	return k == OutcomePartialTimeout || k == OutcomeStillRunning
}

// Outcome is the tagged result of a bounded run.
type Outcome struct {
	Kind     OutcomeKind `json:"kind"`
	PID      int         `json:"pid"`
	Name     string      `json:"name"`
	ExitCode *int        `json:"exit_code,omitempty"` // unset for OutcomeStillRunning
	Stdout   []Line      `json:"stdout"`
	Stderr   []Line      `json:"stderr"`
}
