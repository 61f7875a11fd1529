// Package logging provides a small structured logger for job-scoped
// output: a level, a timestamp, and a file handle dedicated to one
// release's run of the pipeline.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"
)

// Logger writes leveled, timestamped lines to a job-scoped log file,
// optionally tee'd to an additional writer (stdout during interactive
// runs, nothing during batch/queue runs). Each Logger carries a run ID
// so lines from concurrent jobs sharing one release's log file can be
// told apart.
type Logger struct {
	file  *os.File
	std   *log.Logger
	runID string
}

// NewForJob opens (creating if necessary) the log file at path and
// returns a Logger that writes to it. When alsoStdout is true, lines
// are also written to os.Stdout. extra, if non-nil, receives a copy of
// every line as well (used by callers that want to capture output for
// display elsewhere, e.g. a live progress view).
func NewForJob(path string, alsoStdout bool, extra io.Writer) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}

	var w io.Writer = f
	if alsoStdout && extra != nil {
		w = io.MultiWriter(f, os.Stdout, extra)
	} else if alsoStdout {
		w = io.MultiWriter(f, os.Stdout)
	} else if extra != nil {
		w = io.MultiWriter(f, extra)
	}

	return &Logger{
		file:  f,
		std:   log.New(w, "", log.LstdFlags),
		runID: uuid.NewString(),
	}, nil
}

// RunID returns this Logger's unique run correlation id.
func (l *Logger) RunID() string { return l.runID }

// Info logs an info-level line.
func (l *Logger) Info(format string, args ...any) {
	l.std.Printf("INFO  [%s] "+format, append([]any{l.runID}, args...)...)
}

// Error logs an error-level line.
func (l *Logger) Error(format string, args ...any) {
	l.std.Printf("ERROR [%s] "+format, append([]any{l.runID}, args...)...)
}

// Debug logs a debug-level line.
func (l *Logger) Debug(format string, args ...any) {
	l.std.Printf("DEBUG [%s] "+format, append([]any{l.runID}, args...)...)
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	return l.file.Close()
}
