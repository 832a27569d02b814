// Package logging builds the charm logger shared by the commands.
package logging

import (
	"bytes"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Options selects log level and an optional append-only log file.
type Options struct {
	Level   string
	File    string
	Verbose bool
	// Out defaults to os.Stderr.
	Out *os.File
}

// timestampWriter prefixes each flushed line with an RFC3339 timestamp.
type timestampWriter struct {
	w   io.Writer
	buf bytes.Buffer
	mu  sync.Mutex
	now func() time.Time
}

// Write buffers bytes until a newline is found; each full line is written
// with a timestamp. Partial lines stay in the buffer.
func (t *timestampWriter) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _ := t.buf.Write(p)
	for {
		line, err := t.buf.ReadString('\n')
		if err != nil {
			// put the partial line back
			t.buf.WriteString(line)
			break
		}
		ts := t.now().Format(time.RFC3339)
		if _, err := io.WriteString(t.w, ts+" "+line); err != nil {
			return n, err
		}
	}
	return n, nil
}

// terminalWriter exposes Fd so charm log can detect a TTY through the wrapping writers.
type terminalWriter struct {
	w  io.Writer
	fd uintptr
}

func (tw *terminalWriter) Write(p []byte) (int, error) { return tw.w.Write(p) }

func (tw *terminalWriter) Fd() uintptr { return tw.fd }

// New returns a logger writing to opts.Out and, when opts.File is set, to that
// file as well. The returned closer releases the file handle.
func New(opts Options) (*log.Logger, func() error, error) {
	term := opts.Out
	if term == nil {
		term = os.Stderr
	}
	var out io.Writer = term
	closer := func() error { return nil }
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, closer, err
		}
		out = io.MultiWriter(term, f)
		closer = f.Close
	}
	tw := &timestampWriter{w: out, now: time.Now}
	logger := log.New(&terminalWriter{w: tw, fd: term.Fd()})
	logger.SetLevel(ParseLevel(opts.Level, opts.Verbose))
	return logger, closer, nil
}

// ParseLevel maps a config level string onto a charm log level. verbose
// forces debug.
func ParseLevel(level string, verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
