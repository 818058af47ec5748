package capture

import (
	"strings"
	"time"
)

// Query operations never block: each takes a brief record lock to copy out
// state and probes liveness at call time.

const (
	// DefaultCaptureLines is used when a capture request does not say how
	// many tail lines it wants.
	DefaultCaptureLines = 50
	// MaxCaptureLines bounds a single capture response.
	MaxCaptureLines = 1000
)

// clampLines applies the default and the [1, MaxCaptureLines] clamp.
func clampLines(n int) int {
	if n == 0 {
		return DefaultCaptureLines
	}
	if n < 1 {
		return 1
	}
	if n > MaxCaptureLines {
		return MaxCaptureLines
	}
	return n
}

// CaptureView answers "what has this process produced so far, is it still
// alive" with the buffer tails.
type CaptureView struct {
	PID         int           `json:"pid"`
	Name        string        `json:"name"`
	Alive       bool          `json:"alive"`
	ExitCode    *int          `json:"exit_code,omitempty"`
	Runtime     time.Duration `json:"runtime"`
	IdleFor     time.Duration `json:"idle_for"`
	StdoutTotal int           `json:"stdout_total"`
	StderrTotal int           `json:"stderr_total"`
	Stdout      []Line        `json:"stdout"`
	Stderr      []Line        `json:"stderr"`
	CaptureDone bool          `json:"capture_done"`
	CaptureErr  string        `json:"capture_error,omitempty"`
}

// Capture returns the last maxLines lines of each buffer plus liveness and
// timing data. maxLines 0 means DefaultCaptureLines.
func (g *Registry) Capture(pid, maxLines int) (CaptureView, error) {
	rec, err := g.Get(pid)
	if err != nil {
		return CaptureView{}, err
	}
	n := clampLines(maxLines)
	st := rec.Snapshot()
	return CaptureView{
		PID:         st.PID,
		Name:        st.Name,
		Alive:       st.Alive,
		ExitCode:    st.ExitCode,
		Runtime:     st.Runtime(),
		IdleFor:     st.IdleFor(),
		StdoutTotal: st.StdoutLines,
		StderrTotal: st.StderrLines,
		Stdout:      rec.TailStdout(n),
		Stderr:      rec.TailStderr(n),
		CaptureDone: st.CaptureDone,
		CaptureErr:  st.CaptureErr,
	}, nil
}

// Status returns the full detail view: complete command line, working
// directory and absolute timestamps, with line counts instead of content.
func (g *Registry) Status(pid int) (Status, error) {
	rec, err := g.Get(pid)
	if err != nil {
		return Status{}, err
	}
	return rec.Snapshot(), nil
}

// Summary is one line of the list view.
type Summary struct {
	PID         int           `json:"pid"`
	Name        string        `json:"name"`
	Alive       bool          `json:"alive"`
	ExitCode    *int          `json:"exit_code,omitempty"`
	Runtime     time.Duration `json:"runtime"`
	Command     string        `json:"command"`
	StdoutTotal int           `json:"stdout_total"`
	StderrTotal int           `json:"stderr_total"`
}

// Summaries returns one summary per tracked record.
func (g *Registry) Summaries() []Summary {
	recs := g.List()
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		st := rec.Snapshot()
		out = append(out, Summary{
			PID:         st.PID,
			Name:        st.Name,
			Alive:       st.Alive,
			ExitCode:    st.ExitCode,
			Runtime:     st.Runtime(),
			Command:     truncateCommand(st.Command),
			StdoutTotal: st.StdoutLines,
			StderrTotal: st.StderrLines,
		})
	}
	return out
}

// truncateCommand keeps list output short: the first three words of the
// command line, with an ellipsis when more follow.
func truncateCommand(command []string) string {
	if len(command) <= 3 {
		return strings.Join(command, " ")
	}
	return strings.Join(command[:3], " ") + "..."
}
