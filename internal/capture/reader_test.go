package capture

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func TestStreamReaderAppendsLines(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.readersLeft = 1
	r := &streamReader{rec: rec, stream: streamStdout, r: strings.NewReader("one\ntwo\r\nthree")}
	r.run()

	got := rec.TailStdout(0)
	if len(got) != 3 {
		t.Fatalf("captured %d lines, want 3", len(got))
	}
	want := []string{"one", "two", "three"}
	for i, w := range want {
		if got[i].Text != w {
			t.Fatalf("line %d = %q, want %q", i, got[i].Text, w)
		}
	}
	select {
	case <-rec.captureDoneChan():
	default:
		t.Fatalf("reader did not mark capture done")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("pipe burst") }

func TestStreamReaderRecordsReadError(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.readersLeft = 1
	r := &streamReader{rec: rec, stream: streamStderr, r: failingReader{}}
	r.run()

	st := rec.Snapshot()
	if st.CaptureErr != "pipe burst" {
		t.Fatalf("capture error = %q", st.CaptureErr)
	}
	if !st.CaptureDone {
		t.Fatalf("failed reader must still finish the capture")
	}
}

func TestStreamReaderEOFIsNotAnError(t *testing.T) {
	rec := fakeRecord(100, "t")
	rec.readersLeft = 1
	r := &streamReader{rec: rec, stream: streamStdout, r: io.MultiReader()}
	r.run()
	if st := rec.Snapshot(); st.CaptureErr != "" {
		t.Fatalf("EOF recorded as capture error: %q", st.CaptureErr)
	}
}

func TestSanitizeLine(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain\n", "plain"},
		{"crlf\r\n", "crlf"},
		{"no newline", "no newline"},
		{"bad \xff byte\n", "bad � byte"},
		{"", ""},
	}
	for _, c := range cases {
		if got := sanitizeLine(c.in); got != c.want {
			t.Errorf("sanitizeLine(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
