package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventExit  EventType = "exit"
)

// Event is one lifecycle event exported to external audit/statistics
// systems. Events are write-only: the engine never reads them back, and all
// operational state stays in memory.
type Event struct {
	Type        EventType `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	PID         int       `json:"pid"`
	Name        string    `json:"name"`
	Command     string    `json:"command"`
	StartedAt   time.Time `json:"started_at"`
	ExitCode    *int      `json:"exit_code,omitempty"`
	StdoutLines int       `json:"stdout_lines"`
	StderrLines int       `json:"stderr_lines"`
	CaptureErr  string    `json:"capture_error,omitempty"`
}

// Sink is a destination for history events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
