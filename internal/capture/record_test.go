package capture

import (
	"testing"
	"time"
)

// fakeRecord builds a Record without a live process behind it, for tests that
// only exercise buffer and state transitions.
func fakeRecord(pid int, name string) *Record {
	now := time.Now()
	return &Record{
		pid:          pid,
		name:         name,
		command:      []string{"/bin/true"},
		startedAt:    now,
		lastOutputAt: now,
		readersLeft:  2,
		captureCh:    make(chan struct{}),
		waitDone:     make(chan struct{}),
	}
}

func TestAppendAndTail(t *testing.T) {
	rec := fakeRecord(100, "t")
	for i := 0; i < 5; i++ {
		rec.appendLine(streamStdout, Line{At: time.Now(), Text: "out"})
	}
	rec.appendLine(streamStderr, Line{At: time.Now(), Text: "err"})

	if got := rec.TailStdout(3); len(got) != 3 {
		t.Fatalf("TailStdout(3) = %d lines", len(got))
	}
	if got := rec.TailStdout(0); len(got) != 5 {
		t.Fatalf("TailStdout(0) = %d lines, want all 5", len(got))
	}
	if got := rec.TailStdout(100); len(got) != 5 {
		t.Fatalf("TailStdout(100) = %d lines, want 5", len(got))
	}
	if got := rec.TailStderr(0); len(got) != 1 || got[0].Text != "err" {
		t.Fatalf("TailStderr = %+v", got)
	}
}

func TestTailReturnsCopies(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.appendLine(streamStdout, Line{At: time.Now(), Text: "original"})
	got := rec.TailStdout(0)
	got[0].Text = "mutated"
	if again := rec.TailStdout(0); again[0].Text != "original" {
		t.Fatalf("caller mutation leaked into the buffer: %q", again[0].Text)
	}
}

func TestCaptureErrorFirstWins(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.setCaptureError("first")
	rec.setCaptureError("second")
	if st := rec.Snapshot(); st.CaptureErr != "first" {
		t.Fatalf("capture error = %q, want first", st.CaptureErr)
	}
}

func TestReaderFinishedClosesAfterBoth(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.readerFinished()
	select {
	case <-rec.captureDoneChan():
		t.Fatalf("capture done after a single reader")
	default:
	}
	rec.readerFinished()
	select {
	case <-rec.captureDoneChan():
	default:
		t.Fatalf("capture not done after both readers")
	}
	if st := rec.Snapshot(); !st.CaptureDone {
		t.Fatalf("snapshot does not report capture done")
	}
}

func TestMarkExitedOnce(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.markExited(2)
	rec.markExited(9) // must not overwrite or re-close waitDone
	code, ok := rec.ExitCode()
	if !ok || code != 2 {
		t.Fatalf("exit code = %d/%v, want 2/true", code, ok)
	}
	select {
	case <-rec.waitDoneChan():
	default:
		t.Fatalf("waitDone not closed")
	}
	if rec.Alive() {
		t.Fatalf("record alive after markExited")
	}
}

func TestStatusRuntimeUsesCompletedAt(t *testing.T) {
	start := time.Now().Add(-10 * time.Second)
	st := Status{StartedAt: start, CompletedAt: start.Add(2 * time.Second)}
	if got := st.Runtime(); got != 2*time.Second {
		t.Fatalf("runtime = %v, want 2s", got)
	}
	running := Status{StartedAt: start}
	if got := running.Runtime(); got < 9*time.Second {
		t.Fatalf("running runtime = %v, want ~10s", got)
	}
}
