package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestColorTextHandlerColorsByLevel(t *testing.T) {
	var buf bytes.Buffer
	lg := slog.New(NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	lg.Warn("something looks off")
	out := buf.String()
	if !strings.Contains(out, "\033[33m") {
		t.Fatalf("warn output missing yellow code: %q", out)
	}
	if !strings.Contains(out, "something looks off") {
		t.Fatalf("message lost: %q", out)
	}

	buf.Reset()
	lg.Error("broken")
	if !strings.Contains(buf.String(), "\033[31m") {
		t.Fatalf("error output missing red code: %q", buf.String())
	}
}
