package replay

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/petstriker/matchsim/internal/match"
)

// FormatEvent renders an event as one log line
func FormatEvent(ev match.Event) string {
	if len(ev.Params) == 0 {
		return string(ev.Type)
	}
	return string(ev.Type) + " " + strings.Join(ev.Params, " ")
}

// Writer records engine events as an event log. Record satisfies
// match.EventSink.
type Writer struct {
	w      io.Writer
	events int
	err    error
}

// NewWriter writes the formation header and returns a writer for the events
func NewWriter(w io.Writer, a, b match.Formation) (*Writer, error) {
	if _, err := fmt.Fprintf(w, "%s vs %s\n", FormatFormationToken(a), FormatFormationToken(b)); err != nil {
		return nil, fmt.Errorf("failed to write log header: %w", err)
	}
	return &Writer{w: w}, nil
}

// Record appends one event. After the first failure further events are dropped
// and the error is kept for Err.
func (w *Writer) Record(ev match.Event) {
	if w.err != nil {
		return
	}
	if _, err := io.WriteString(w.w, FormatEvent(ev)+"\n"); err != nil {
		w.err = fmt.Errorf("failed to write event %s: %w", ev.Type, err)
		return
	}
	w.events++
}

// Sink returns Record as an engine event sink
func (w *Writer) Sink() match.EventSink {
	return w.Record
}

// Events returns the number of events written
func (w *Writer) Events() int {
	return w.events
}

// Err returns the first write error
func (w *Writer) Err() error {
	return w.err
}

// OpenLog opens an event log file. Files ending in .gz are decompressed.
// The returned closer releases every underlying resource.
func OpenLog(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	return &stackedCloser{Reader: gz, closers: []io.Closer{gz, file}}, nil
}

// CreateLog creates an event log file. Files ending in .gz are compressed.
func CreateLog(path string) (io.WriteCloser, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}
	if !strings.HasSuffix(path, ".gz") {
		return file, nil
	}
	gz := gzip.NewWriter(file)
	return &stackedWriteCloser{Writer: gz, closers: []io.Closer{gz, file}}, nil
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	return closeAll(s.closers)
}

type stackedWriteCloser struct {
	io.Writer
	closers []io.Closer
}

func (s *stackedWriteCloser) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []io.Closer) error {
	var first error
	for _, c := range closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
