package capture

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/loykin/captr/internal/metrics"
)

// streamReader drains one output stream of one process into the record
// buffer. Each process gets two of these running concurrently; neither ever
// waits for the other, and neither blocks a query (appends take the record
// lock only for the copy).
type streamReader struct {
	rec    *Record
	stream streamKind
	r      io.Reader
	mirror io.WriteCloser // optional rotating file copy of the raw stream
}

func (s *streamReader) run() {
	defer s.rec.readerFinished()
	if s.mirror != nil {
		defer func() { _ = s.mirror.Close() }()
	}
	br := bufio.NewReader(s.r)
	for {
		chunk, err := br.ReadString('\n')
		if chunk != "" {
			if s.mirror != nil {
				_, _ = io.WriteString(s.mirror, chunk)
			}
			s.rec.appendLine(s.stream, Line{At: time.Now(), Text: sanitizeLine(chunk)})
			metrics.IncCapturedLines(string(s.stream))
		}
		if err != nil {
			if err != io.EOF {
				s.rec.setCaptureError(err.Error())
			}
			return
		}
	}
}

// sanitizeLine strips the line terminator and replaces byte sequences that
// are not valid UTF-8; undecodable input never aborts the reader.
func sanitizeLine(s string) string {
	s = strings.TrimRight(s, "\r\n")
	return strings.ToValidUTF8(s, "�")
}
